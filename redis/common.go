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

package redis

import (
	"context"
	"time"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
	"github.com/redisdb/redisdb/expiry"
	"github.com/redisdb/redisdb/txn"
	"github.com/tidwall/match"
)

// ========================================= Keys =========================================

// metaAny resolves key's metadata without validating a specific datatype,
// used by the family of commands (DEL, TYPE, TTL, EXPIRE, ...) that apply
// uniformly regardless of what the key holds.
func (r *RedisDataStructure) metaAny(key []byte) (*codec.Metadata, bool, error) {
	return expiry.Resolve(r.f, key, 0)
}

// runAny is run without a datatype check, for the same datatype-agnostic
// command family.
func (r *RedisDataStructure) runAny(key []byte, fn txn.Fn) error {
	return txn.RunWithRetryLimit(context.Background(), r.f, key, 0, fn, RetryLimit)
}

// Del removes key if present. It reports whether the key existed.
func (r *RedisDataStructure) Del(key []byte) (bool, error) {
	existed := false
	err := r.runAny(key, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists {
			return nil, nil
		}
		existed = true
		ops := []redisdb.Op{redisdb.DeleteOp(codec.EncodeMeta(key))}
		if meta.ExpireMs != 0 {
			ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
		}
		return ops, nil
	})
	return existed, err
}

// Exists reports whether key is present and not expired.
func (r *RedisDataStructure) Exists(key []byte) (bool, error) {
	_, exists, err := r.metaAny(key)
	return exists, err
}

// Type returns the Redis type name for key, or "none" if absent.
func (r *RedisDataStructure) Type(key []byte) (string, error) {
	meta, exists, err := r.metaAny(key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "none", nil
	}
	return codec.TypeName(meta.DataType), nil
}

// TTL returns the remaining time to live in whole seconds: -2 if key is
// absent, -1 if key has no TTL.
func (r *RedisDataStructure) TTL(key []byte) (int64, error) {
	remainMs, ok, err := r.pttl(key)
	if !ok || err != nil {
		return remainMs, err
	}
	if remainMs < 0 {
		return remainMs, nil
	}
	return (remainMs + 999) / 1000, nil
}

// PTTL is TTL with millisecond resolution.
func (r *RedisDataStructure) PTTL(key []byte) (int64, error) {
	remainMs, _, err := r.pttl(key)
	return remainMs, err
}

func (r *RedisDataStructure) pttl(key []byte) (int64, bool, error) {
	meta, exists, err := r.metaAny(key)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return -2, false, nil
	}
	if meta.ExpireMs == 0 {
		return -1, false, nil
	}
	remain := meta.ExpireMs - time.Now().UnixMilli()
	if remain < 0 {
		remain = 0
	}
	return remain, true, nil
}

// ExpireAt sets key's expiration to the given millisecond timestamp,
// reporting whether key existed to have its TTL set.
func (r *RedisDataStructure) ExpireAt(key []byte, whenMs int64) (bool, error) {
	ok := false
	err := r.runAny(key, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists {
			return nil, nil
		}
		ok = true
		return expiry.SetExpire(meta, meta.ExpireMs, key, whenMs), nil
	})
	return ok, err
}

// Expire sets key's TTL to ttl from now.
func (r *RedisDataStructure) Expire(key []byte, ttl time.Duration) (bool, error) {
	return r.ExpireAt(key, time.Now().Add(ttl).UnixMilli())
}

// PExpire sets key's TTL to ttlMs milliseconds from now.
func (r *RedisDataStructure) PExpire(key []byte, ttlMs int64) (bool, error) {
	return r.ExpireAt(key, time.Now().UnixMilli()+ttlMs)
}

// PExpireAt sets key's expiration to the given millisecond timestamp.
func (r *RedisDataStructure) PExpireAt(key []byte, whenMs int64) (bool, error) {
	return r.ExpireAt(key, whenMs)
}

// Persist clears any TTL on key, reporting whether it had one to clear.
func (r *RedisDataStructure) Persist(key []byte) (bool, error) {
	changed := false
	err := r.runAny(key, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.ExpireMs == 0 {
			return nil, nil
		}
		changed = true
		return expiry.ClearExpire(meta, key), nil
	})
	return changed, err
}

// Keys scans every metadata record and returns the logical keys whose name
// matches the glob pattern (supports *, ?, [set]), skipping expired entries.
// It checks ctx for cancellation every scanChunkSize records (spec.md §5),
// stopping at the next chunk boundary rather than mid-scan.
func (r *RedisDataStructure) Keys(ctx context.Context, pattern string) ([][]byte, error) {
	snap := r.f.Snapshot()
	cursor := snap.Scan([]byte{codec.TagMeta}, codec.MetaLowerBound(), codec.MetaUpperBound(), false)
	defer cursor.Close()

	now := time.Now().UnixMilli()
	var out [][]byte
	for n := 0; cursor.Valid(); n++ {
		if err := r.yieldEvery(ctx, n); err != nil {
			return out, err
		}

		key, err := codec.DecodeMeta(cursor.Key())
		if err != nil {
			cursor.Next()
			continue
		}

		raw, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		meta, err := codec.DecodeMetadata(raw)
		if err != nil {
			cursor.Next()
			continue
		}
		if meta.ExpireMs != 0 && meta.ExpireMs <= now {
			cursor.Next()
			continue
		}

		if match.Match(string(key), pattern) {
			out = append(out, append([]byte(nil), key...))
		}
		cursor.Next()
	}
	return out, nil
}

// Ping is the constant reply for the PING command; it never touches storage.
func (r *RedisDataStructure) Ping() string {
	return "PONG"
}
