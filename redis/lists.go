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
	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// ========================================= List =========================================
//
// Stored as a dense logical range [Head, Tail) of 8-byte signed indices
// (spec.md §4.5.3). LPUSH decrements Head and writes at the new index;
// RPUSH writes at Tail and increments it.

func listSubkey(key []byte, version uint64, index int64) []byte {
	return codec.EncodeSub(key, version, codec.SubkeyKindList, codec.EncodeListIndex(index))
}

// LPush implements LPUSH, returning the list length after the push.
func (r *RedisDataStructure) LPush(key, element []byte) (uint32, error) {
	return r.innerPush(key, element, true)
}

// RPush implements RPUSH, returning the list length after the push.
func (r *RedisDataStructure) RPush(key, element []byte) (uint32, error) {
	return r.innerPush(key, element, false)
}

func (r *RedisDataStructure) innerPush(key, element []byte, left bool) (uint32, error) {
	var newLen uint32
	err := r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(List)
		}

		var idx int64
		if left {
			m.Head--
			idx = m.Head
		} else {
			idx = m.Tail
			m.Tail++
		}
		m.Size++
		newLen = m.Size

		return []redisdb.Op{
			redisdb.PutOp(listSubkey(key, m.Version, idx), element),
			redisdb.PutOp(codec.EncodeMeta(key), m.Encode()),
		}, nil
	})
	return newLen, err
}

// LPop implements LPOP.
func (r *RedisDataStructure) LPop(key []byte) ([]byte, error) { return r.innerPop(key, true) }

// RPop implements RPOP.
func (r *RedisDataStructure) RPop(key []byte) ([]byte, error) { return r.innerPop(key, false) }

func (r *RedisDataStructure) innerPop(key []byte, left bool) ([]byte, error) {
	var popped []byte
	err := r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		m := *meta
		var idx int64
		if left {
			idx = m.Head
			m.Head++
		} else {
			m.Tail--
			idx = m.Tail
		}
		m.Size--

		subKey := listSubkey(key, meta.Version, idx)
		v, ok, err := r.f.Get(subKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		popped = v

		ops := []redisdb.Op{redisdb.DeleteOp(subKey)}
		if m.Size == 0 {
			ops = append(ops, redisdb.DeleteOp(codec.EncodeMeta(key)))
			if meta.ExpireMs != 0 {
				ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
			}
		} else {
			ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		}
		return ops, nil
	})
	return popped, err
}

// LLen implements LLEN.
func (r *RedisDataStructure) LLen(key []byte) (uint32, error) {
	meta, exists, err := r.readMeta(key, List)
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// resolveListIndex turns a user-facing (possibly negative) index into the
// dense physical index, or ok=false if out of range.
func resolveListIndex(meta *codec.Metadata, i int64) (idx int64, ok bool) {
	length := meta.Tail - meta.Head
	if i < 0 {
		i = length + i
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return meta.Head + i, true
}

// LIndex implements LINDEX.
func (r *RedisDataStructure) LIndex(key []byte, i int64) ([]byte, bool, error) {
	meta, exists, err := r.readMeta(key, List)
	if err != nil || !exists {
		return nil, false, err
	}
	idx, ok := resolveListIndex(meta, i)
	if !ok {
		return nil, false, nil
	}
	return r.f.Get(listSubkey(key, meta.Version, idx))
}

// LRange implements LRANGE, clamping start/stop into [0, len) after
// negative normalization, inclusive on both ends.
func (r *RedisDataStructure) LRange(key []byte, start, stop int64) ([][]byte, error) {
	meta, exists, err := r.readMeta(key, List)
	if err != nil || !exists {
		return nil, err
	}

	length := meta.Tail - meta.Head
	if length == 0 {
		return nil, nil
	}
	if start < 0 {
		start = length + start
	}
	if stop < 0 {
		stop = length + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		v, ok, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// LSet implements LSET, erroring if i is out of range.
func (r *RedisDataStructure) LSet(key []byte, i int64, value []byte) error {
	return r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists {
			return nil, redisdb.ErrKeyNotFound
		}
		idx, ok := resolveListIndex(meta, i)
		if !ok {
			return nil, ErrSyntax
		}
		return []redisdb.Op{redisdb.PutOp(listSubkey(key, meta.Version, idx), value)}, nil
	})
}

// LTrim implements LTRIM: elements outside the surviving [start, stop]
// window (after negative normalization) are deleted; an empty window
// deletes the metadata record and every element, removing the key.
func (r *RedisDataStructure) LTrim(key []byte, start, stop int64) error {
	return r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		length := meta.Tail - meta.Head
		if start < 0 {
			start = length + start
		}
		if stop < 0 {
			stop = length + stop
		}
		if start < 0 {
			start = 0
		}
		if stop >= length {
			stop = length - 1
		}

		m := *meta
		if start > stop {
			// empty window: logically delete the whole key.
			ops := []redisdb.Op{redisdb.DeleteOp(codec.EncodeMeta(key))}
			if meta.ExpireMs != 0 {
				ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
			}
			for i := int64(0); i < length; i++ {
				ops = append(ops, redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)))
			}
			return ops, nil
		}

		var ops []redisdb.Op
		for i := int64(0); i < start; i++ {
			ops = append(ops, redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)))
		}
		for i := stop + 1; i < length; i++ {
			ops = append(ops, redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)))
		}

		m.Head = meta.Head + start
		m.Tail = meta.Head + stop + 1
		m.Size = uint32(stop - start + 1)
		ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
}

// LInsert implements LINSERT BEFORE|AFTER: it finds the first occurrence of
// pivot with a forward scan and renumbers whichever side (prefix or
// suffix) is shorter so indices stay dense. Returns the new length, or 0 if
// pivot was not found.
func (r *RedisDataStructure) LInsert(key []byte, before bool, pivot, value []byte) (uint32, error) {
	var newLen uint32
	err := r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		length := meta.Tail - meta.Head
		found := int64(-1)
		for i := int64(0); i < length; i++ {
			v, ok, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
			if err != nil {
				return nil, err
			}
			if ok && string(v) == string(pivot) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, nil
		}

		insertAt := found
		if !before {
			insertAt = found + 1
		}

		m := *meta
		var ops []redisdb.Op

		leftCount := insertAt
		rightCount := length - insertAt
		if leftCount <= rightCount {
			// shift [0, insertAt) left by one, opening a slot at Head-1.
			for i := int64(0); i < leftCount; i++ {
				v, _, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
				if err != nil {
					return nil, err
				}
				ops = append(ops,
					redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)),
					redisdb.PutOp(listSubkey(key, meta.Version, meta.Head-1+i), v))
			}
			ops = append(ops, redisdb.PutOp(listSubkey(key, meta.Version, meta.Head-1+leftCount), value))
			m.Head--
		} else {
			// shift [insertAt, length) right by one, opening a slot at Tail.
			for i := length - 1; i >= insertAt; i-- {
				v, _, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
				if err != nil {
					return nil, err
				}
				ops = append(ops,
					redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)),
					redisdb.PutOp(listSubkey(key, meta.Version, meta.Head+i+1), v))
			}
			ops = append(ops, redisdb.PutOp(listSubkey(key, meta.Version, meta.Head+insertAt), value))
			m.Tail++
		}

		m.Size++
		newLen = m.Size
		ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return newLen, err
}

// LRem implements LREM: removes up to count occurrences of value, scanning
// head-to-tail for count >= 0 and tail-to-head for count < 0 (0 removes
// every occurrence). It then renumbers the remainder into a dense range.
func (r *RedisDataStructure) LRem(key []byte, count int64, value []byte) (uint32, error) {
	var removed uint32
	err := r.run(key, List, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		length := meta.Tail - meta.Head
		kept := make([][]byte, 0, length)
		limit := count
		if limit < 0 {
			limit = -limit
		}

		indices := make([]int64, length)
		for i := range indices {
			indices[i] = int64(i)
		}
		if count < 0 {
			for l, h := 0, len(indices)-1; l < h; l, h = l+1, h-1 {
				indices[l], indices[h] = indices[h], indices[l]
			}
		}

		toRemove := make(map[int64]bool)
		for _, i := range indices {
			if limit > 0 && int64(len(toRemove)) >= limit && count != 0 {
				break
			}
			v, ok, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
			if err != nil {
				return nil, err
			}
			if ok && string(v) == string(value) {
				toRemove[i] = true
			}
		}

		if len(toRemove) == 0 {
			return nil, nil
		}

		for i := int64(0); i < length; i++ {
			if toRemove[i] {
				continue
			}
			v, _, err := r.f.Get(listSubkey(key, meta.Version, meta.Head+i))
			if err != nil {
				return nil, err
			}
			kept = append(kept, v)
		}
		removed = uint32(len(toRemove))

		m := *meta
		var ops []redisdb.Op
		for i := int64(0); i < length; i++ {
			ops = append(ops, redisdb.DeleteOp(listSubkey(key, meta.Version, meta.Head+i)))
		}
		if len(kept) == 0 {
			ops = append(ops, redisdb.DeleteOp(codec.EncodeMeta(key)))
			if meta.ExpireMs != 0 {
				ops = append(ops, redisdb.DeleteOp(codec.EncodeExpireIndex(meta.ExpireMs, key)))
			}
			return ops, nil
		}

		m.Head = codec.InitialListMark
		m.Tail = codec.InitialListMark + int64(len(kept))
		m.Size = uint32(len(kept))
		for i, v := range kept {
			ops = append(ops, redisdb.PutOp(listSubkey(key, meta.Version, m.Head+int64(i)), v))
		}
		ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return removed, err
}
