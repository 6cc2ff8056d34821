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
	"strconv"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// ========================================= Hash =========================================
//
// Fields live as D-tag subkeys suffixed `H ∥ field` (spec.md §4.5.2); HLEN
// is served straight from the metadata counter.

func hashSubkey(key []byte, version uint64, field []byte) []byte {
	return codec.EncodeSub(key, version, codec.SubkeyKindHash, field)
}

// HSet implements HSET, reporting whether field was new.
func (r *RedisDataStructure) HSet(key, field, value []byte) (bool, error) {
	isNew := false
	err := r.run(key, Hash, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(Hash)
		}

		subKey := hashSubkey(key, m.Version, field)
		_, fieldExists, err := r.f.Get(subKey)
		if err != nil {
			return nil, err
		}

		ops := []redisdb.Op{redisdb.PutOp(subKey, value)}
		if !fieldExists {
			isNew = true
			m.Size++
		}
		ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return isNew, err
}

// HSetNX implements HSETNX: sets field only if it does not already exist.
func (r *RedisDataStructure) HSetNX(key, field, value []byte) (bool, error) {
	wrote := false
	err := r.run(key, Hash, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(Hash)
		}

		subKey := hashSubkey(key, m.Version, field)
		_, fieldExists, err := r.f.Get(subKey)
		if err != nil {
			return nil, err
		}
		if fieldExists {
			return nil, nil
		}

		wrote = true
		m.Size++
		return []redisdb.Op{
			redisdb.PutOp(subKey, value),
			redisdb.PutOp(codec.EncodeMeta(key), m.Encode()),
		}, nil
	})
	return wrote, err
}

// HGet implements HGET.
func (r *RedisDataStructure) HGet(key, field []byte) ([]byte, bool, error) {
	meta, exists, err := r.readMeta(key, Hash)
	if err != nil || !exists || meta.Size == 0 {
		return nil, false, err
	}
	return r.f.Get(hashSubkey(key, meta.Version, field))
}

// HExists implements HEXISTS.
func (r *RedisDataStructure) HExists(key, field []byte) (bool, error) {
	_, exists, err := r.HGet(key, field)
	return exists, err
}

// HDel implements HDEL, reporting whether field was present.
func (r *RedisDataStructure) HDel(key, field []byte) (bool, error) {
	existed := false
	err := r.run(key, Hash, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		subKey := hashSubkey(key, meta.Version, field)
		_, fieldExists, err := r.f.Get(subKey)
		if err != nil {
			return nil, err
		}
		if !fieldExists {
			return nil, nil
		}

		existed = true
		m := *meta
		m.Size--
		return []redisdb.Op{
			redisdb.DeleteOp(subKey),
			redisdb.PutOp(codec.EncodeMeta(key), m.Encode()),
		}, nil
	})
	return existed, err
}

// HLen implements HLEN.
func (r *RedisDataStructure) HLen(key []byte) (uint32, error) {
	meta, exists, err := r.readMeta(key, Hash)
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// HIncrBy implements HINCRBY using the same numeric rules as INCRBY.
func (r *RedisDataStructure) HIncrBy(key, field []byte, delta int64) (int64, error) {
	var result int64
	err := r.run(key, Hash, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(Hash)
		}

		subKey := hashSubkey(key, m.Version, field)
		raw, fieldExists, err := r.f.Get(subKey)
		if err != nil {
			return nil, err
		}

		var cur int64
		if fieldExists && len(raw) > 0 {
			parsed, err := strconv.ParseInt(string(raw), 10, 64)
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

		ops := []redisdb.Op{redisdb.PutOp(subKey, []byte(strconv.FormatInt(sum, 10)))}
		if !fieldExists {
			m.Size++
			ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		}
		return ops, nil
	})
	return result, err
}

// hashScan iterates every live field of key, calling fn for each; it stops
// at the first error fn returns.
func (r *RedisDataStructure) hashScan(key []byte, fn func(field, value []byte) error) error {
	meta, exists, err := r.readMeta(key, Hash)
	if err != nil || !exists || meta.Size == 0 {
		return err
	}

	prefix := codec.SubPrefix(key, meta.Version, codec.SubkeyKindHash)
	cursor := r.f.Scan(prefix, prefix, nil, false)
	defer cursor.Close()

	for cursor.Valid() {
		_, _, _, field, err := codec.DecodeSub(cursor.Key())
		if err != nil {
			cursor.Next()
			continue
		}
		value, err := cursor.Value()
		if err != nil {
			return err
		}
		if err := fn(append([]byte(nil), field...), value); err != nil {
			return err
		}
		cursor.Next()
	}
	return nil
}

// HGetAll implements HGETALL.
func (r *RedisDataStructure) HGetAll(key []byte) ([][2][]byte, error) {
	var out [][2][]byte
	err := r.hashScan(key, func(field, value []byte) error {
		out = append(out, [2][]byte{field, value})
		return nil
	})
	return out, err
}

// HKeys implements HKEYS.
func (r *RedisDataStructure) HKeys(key []byte) ([][]byte, error) {
	var out [][]byte
	err := r.hashScan(key, func(field, _ []byte) error {
		out = append(out, field)
		return nil
	})
	return out, err
}

// HVals implements HVALS.
func (r *RedisDataStructure) HVals(key []byte) ([][]byte, error) {
	var out [][]byte
	err := r.hashScan(key, func(_, value []byte) error {
		out = append(out, value)
		return nil
	})
	return out, err
}

// HMGet implements HMGET: a missing field reports a nil slot.
func (r *RedisDataStructure) HMGet(key []byte, fields [][]byte) ([][]byte, error) {
	meta, exists, err := r.readMeta(key, Hash)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(fields))
	if !exists || meta.Size == 0 {
		return out, nil
	}
	for i, field := range fields {
		v, ok, err := r.f.Get(hashSubkey(key, meta.Version, field))
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}
