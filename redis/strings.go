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
	"errors"
	"strconv"
	"time"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// ========================================= String =========================================
//
// Strings store their payload inlined in the metadata record (spec.md
// §3.3); there is no separate D-tag subkey for this datatype.

// SetOptions carries the EX/PX/NX/XX flags of the SET command.
type SetOptions struct {
	TTL time.Duration // 0 means no expiration
	NX  bool          // only set if key does not already exist
	XX  bool          // only set if key already exists
}

// Set implements SET. It overwrites whatever datatype key previously held
// (NX/XX guard aside) — a version bump is implicit in always minting a
// fresh Metadata, which orphans any subkeys a prior non-string value left
// behind for the sweeper to reclaim. It reports whether the value was
// written.
func (r *RedisDataStructure) Set(key, value []byte, opts SetOptions) (bool, error) {
	wrote := false
	err := r.runAny(key, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if opts.NX && exists {
			return nil, nil
		}
		if opts.XX && !exists {
			return nil, nil
		}
		wrote = true

		var expireMs int64
		if opts.TTL > 0 {
			expireMs = time.Now().Add(opts.TTL).UnixMilli()
		}

		newMeta := &codec.Metadata{DataType: String, Version: nextVersion(meta, exists), ExpireMs: expireMs, Value: value}
		ops := []redisdb.Op{redisdb.PutOp(codec.EncodeMeta(key), newMeta.Encode())}
		if exists && meta.ExpireMs != 0 {
			ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
		}
		if expireMs != 0 {
			ops = append(ops, redisdb.PutOp(codec.EncodeExpireIndex(expireMs, key), nil))
		}
		return ops, nil
	})
	return wrote, err
}

// nextVersion picks the version for a freshly-written metadata record: the
// prior version stays only when overwriting a live key of the SAME
// instance; SET always replaces the instance, so a fresh version is minted
// every time to guarantee any orphaned subkeys a prior type left behind
// carry a version the live metadata no longer references.
func nextVersion(meta *codec.Metadata, exists bool) uint64 {
	if exists {
		return meta.Version + 1
	}
	return uint64(time.Now().UnixNano())
}

// Get implements GET. It errors WRONGTYPE against a non-string key.
func (r *RedisDataStructure) Get(key []byte) ([]byte, bool, error) {
	meta, exists, err := r.readMeta(key, String)
	if err != nil || !exists {
		return nil, exists, err
	}
	return meta.Value, true, nil
}

// MGet implements MGET: a key holding the wrong type reads back as absent
// rather than aborting the whole batch.
func (r *RedisDataStructure) MGet(keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		v, _, err := r.Get(key)
		if err != nil && !errors.Is(err, ErrWrongType) {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MSet implements MSET over an even-length key/value slice.
func (r *RedisDataStructure) MSet(pairs [][]byte) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, err := r.Set(pairs[i], pairs[i+1], SetOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// Strlen implements STRLEN.
func (r *RedisDataStructure) Strlen(key []byte) (int, error) {
	v, exists, err := r.Get(key)
	if err != nil || !exists {
		return 0, err
	}
	return len(v), nil
}

// Append implements APPEND: if key is absent it behaves like SET.
func (r *RedisDataStructure) Append(key, value []byte) (int, error) {
	newLen := 0
	err := r.run(key, String, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var combined []byte
		var expireMs int64
		version := nextVersion(meta, exists)
		if exists {
			combined = append(append([]byte(nil), meta.Value...), value...)
			expireMs = meta.ExpireMs
			version = meta.Version
		} else {
			combined = append([]byte(nil), value...)
		}
		newLen = len(combined)
		newMeta := &codec.Metadata{DataType: String, Version: version, ExpireMs: expireMs, Value: combined}
		return []redisdb.Op{redisdb.PutOp(codec.EncodeMeta(key), newMeta.Encode())}, nil
	})
	return newLen, err
}

// GetSet implements GETSET: returns the previous value (nil if absent) and
// installs the new one, clearing any TTL the key previously had.
func (r *RedisDataStructure) GetSet(key, value []byte) ([]byte, error) {
	var old []byte
	err := r.run(key, String, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if exists {
			old = meta.Value
		}
		newMeta := &codec.Metadata{DataType: String, Version: nextVersion(meta, exists), Value: value}
		ops := []redisdb.Op{redisdb.PutOp(codec.EncodeMeta(key), newMeta.Encode())}
		if exists && meta.ExpireMs != 0 {
			ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
		}
		return ops, nil
	})
	return old, err
}

// Incr implements INCR.
func (r *RedisDataStructure) Incr(key []byte) (int64, error) { return r.IncrBy(key, 1) }

// Decr implements DECR.
func (r *RedisDataStructure) Decr(key []byte) (int64, error) { return r.IncrBy(key, -1) }

// DecrBy implements DECRBY.
func (r *RedisDataStructure) DecrBy(key []byte, delta int64) (int64, error) {
	return r.IncrBy(key, -delta)
}

// IncrBy implements INCRBY (and backs INCR/DECR/DECRBY). The current value
// must parse as a signed 64-bit decimal; overflow is rejected the same as
// a parse failure.
func (r *RedisDataStructure) IncrBy(key []byte, delta int64) (int64, error) {
	var result int64
	err := r.run(key, String, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var cur int64
		if exists && len(meta.Value) > 0 {
			parsed, err := strconv.ParseInt(string(meta.Value), 10, 64)
			if err != nil {
				return nil, ErrNotInteger
			}
			cur = parsed
		}

		sum := cur + delta
		if (delta > 0 && sum < cur) || (delta < 0 && sum > cur) {
			return nil, ErrNotInteger
		}
		result = sum

		newMeta := &codec.Metadata{DataType: String, Version: nextVersion(meta, exists), Value: []byte(strconv.FormatInt(sum, 10))}
		if exists {
			newMeta.ExpireMs = meta.ExpireMs
			newMeta.Version = meta.Version
		}
		return []redisdb.Op{redisdb.PutOp(codec.EncodeMeta(key), newMeta.Encode())}, nil
	})
	return result, err
}
