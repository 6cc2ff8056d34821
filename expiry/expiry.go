/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package expiry implements lazy expire-on-read and the active background
// sweep described in spec.md §4.4: a key whose metadata carries a past
// ExpireMs is logically gone the instant anything observes it, whether that
// observation happens inline in a command handler or on the sweeper's tick.
package expiry

import (
	"errors"
	"time"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// Resolve reads key's metadata and applies the lazy-expiry side effect: if
// the stored record has expired, it commits a cleanup batch (delete the M
// entry and its matching X entry) and reports exists=false, the same as if
// the key had never been set. dt is carried through so callers that need it
// for a WRONGTYPE check have it without a second round trip; Resolve itself
// does not validate the type.
func Resolve(f *redisdb.Facade, key []byte, dt codec.DataType) (*codec.Metadata, bool, error) {
	metaKey := codec.EncodeMeta(key)
	raw, ok, err := f.Get(metaKey)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	meta, err := codec.DecodeMetadata(raw)
	if err != nil {
		return nil, false, err
	}

	if !expired(meta, time.Now()) {
		return meta, true, nil
	}

	if err := expireNow(f, key, meta); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

func expired(meta *codec.Metadata, now time.Time) bool {
	return meta.ExpireMs != 0 && meta.ExpireMs <= now.UnixMilli()
}

// expireNow applies the cleanup batch for a key observed to be expired. The
// version guard means a racing SET that lands first wins and this delete
// becomes a harmless no-op (ErrConflict is swallowed: the caller will simply
// re-resolve and see live metadata on its next attempt).
func expireNow(f *redisdb.Facade, key []byte, meta *codec.Metadata) error {
	ops := []redisdb.Op{
		redisdb.DeleteOp(codec.EncodeMeta(key)),
		redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)),
	}
	metaKey := codec.EncodeMeta(key)
	err := f.ApplyIfVersion(metaKey, true, meta.Version, ops)
	if errors.Is(err, redisdb.ErrConflict) {
		return nil
	}
	return err
}

// SetExpire installs or replaces key's expiration, updating the M record's
// ExpireMs and the X index atomically. It only builds the ops; the caller
// puts them in its own Apply batch, so the expire update lands together
// with whatever else that batch holds. The EXPIRE family of commands
// returns them as the whole batch.
func SetExpire(meta *codec.Metadata, oldExpireMs int64, key []byte, newExpireMs int64) []redisdb.Op {
	var ops []redisdb.Op
	if oldExpireMs != 0 {
		ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(oldExpireMs, key)))
	}
	updated := *meta
	updated.ExpireMs = newExpireMs
	ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), updated.Encode()))
	if newExpireMs != 0 {
		ops = append(ops, redisdb.PutOp(codec.EncodeExpireIndex(newExpireMs, key), nil))
	}
	return ops
}

// ClearExpire removes any TTL on key (PERSIST), leaving the rest of the
// metadata untouched.
func ClearExpire(meta *codec.Metadata, key []byte) []redisdb.Op {
	return SetExpire(meta, meta.ExpireMs, key, 0)
}
