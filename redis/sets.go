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
	"math/rand"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// ========================================= Set =========================================
//
// Members live as D-tag subkeys suffixed `S ∥ member`, with an empty value
// (spec.md §4.5.4).

func setSubkey(key []byte, version uint64, member []byte) []byte {
	return codec.EncodeSub(key, version, codec.SubkeyKindSet, member)
}

// SAdd implements SADD, returning the number of members actually added.
func (r *RedisDataStructure) SAdd(key []byte, members [][]byte) (int, error) {
	added := 0
	err := r.run(key, Set, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(Set)
		}

		var ops []redisdb.Op
		for _, member := range members {
			subKey := setSubkey(key, m.Version, member)
			_, present, err := r.f.Get(subKey)
			if err != nil {
				return nil, err
			}
			if present {
				continue
			}
			ops = append(ops, redisdb.PutOp(subKey, nil))
			m.Size++
			added++
		}
		if added == 0 {
			return nil, nil
		}
		ops = append(ops, redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return added, err
}

// SRem implements SREM, returning the number of members actually removed.
func (r *RedisDataStructure) SRem(key []byte, members [][]byte) (int, error) {
	removed := 0
	err := r.run(key, Set, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		m := *meta
		var ops []redisdb.Op
		for _, member := range members {
			subKey := setSubkey(key, meta.Version, member)
			_, present, err := r.f.Get(subKey)
			if err != nil {
				return nil, err
			}
			if !present {
				continue
			}
			ops = append(ops, redisdb.DeleteOp(subKey))
			m.Size--
			removed++
		}
		if removed == 0 {
			return nil, nil
		}
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
	return removed, err
}

// SIsMember implements SISMEMBER.
func (r *RedisDataStructure) SIsMember(key, member []byte) (bool, error) {
	meta, exists, err := r.readMeta(key, Set)
	if err != nil || !exists || meta.Size == 0 {
		return false, err
	}
	_, present, err := r.f.Get(setSubkey(key, meta.Version, member))
	return present, err
}

// SMIsMember implements SMISMEMBER.
func (r *RedisDataStructure) SMIsMember(key []byte, members [][]byte) ([]bool, error) {
	meta, exists, err := r.readMeta(key, Set)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(members))
	if !exists || meta.Size == 0 {
		return out, nil
	}
	for i, member := range members {
		_, present, err := r.f.Get(setSubkey(key, meta.Version, member))
		if err != nil {
			return nil, err
		}
		out[i] = present
	}
	return out, nil
}

// SCard implements SCARD.
func (r *RedisDataStructure) SCard(key []byte) (uint32, error) {
	meta, exists, err := r.readMeta(key, Set)
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// members returns every live member of key as a plain slice, used by
// SMEMBERS and the set-algebra commands. It checks ctx for cancellation
// every scanChunkSize records (spec.md §5).
func (r *RedisDataStructure) members(ctx context.Context, key []byte) ([][]byte, error) {
	meta, exists, err := r.readMeta(key, Set)
	if err != nil || !exists || meta.Size == 0 {
		return nil, err
	}

	prefix := codec.SubPrefix(key, meta.Version, codec.SubkeyKindSet)
	cursor := r.f.Scan(prefix, prefix, nil, false)
	defer cursor.Close()

	out := make([][]byte, 0, meta.Size)
	for n := 0; cursor.Valid(); n++ {
		if err := r.yieldEvery(ctx, n); err != nil {
			return out, err
		}
		_, _, _, member, err := codec.DecodeSub(cursor.Key())
		if err == nil {
			out = append(out, append([]byte(nil), member...))
		}
		cursor.Next()
	}
	return out, nil
}

// SMembers implements SMEMBERS.
func (r *RedisDataStructure) SMembers(ctx context.Context, key []byte) ([][]byte, error) {
	return r.members(ctx, key)
}

// SPop implements SPOP [count]: removes and returns up to count members.
// Selection order is unspecified but deterministic given current state.
func (r *RedisDataStructure) SPop(ctx context.Context, key []byte, count int) ([][]byte, error) {
	var popped [][]byte
	err := r.run(key, Set, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 || count <= 0 {
			return nil, nil
		}

		prefix := codec.SubPrefix(key, meta.Version, codec.SubkeyKindSet)
		cursor := r.f.Scan(prefix, prefix, nil, false)
		defer cursor.Close()

		m := *meta
		var ops []redisdb.Op
		for n := 0; cursor.Valid() && len(popped) < count; n++ {
			if err := r.yieldEvery(ctx, n); err != nil {
				return nil, err
			}
			_, _, _, member, err := codec.DecodeSub(cursor.Key())
			if err == nil {
				popped = append(popped, append([]byte(nil), member...))
				ops = append(ops, redisdb.DeleteOp(setSubkey(key, meta.Version, member)))
				m.Size--
			}
			cursor.Next()
		}
		if len(popped) == 0 {
			return nil, nil
		}
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

// SRandMember implements SRANDMEMBER [count] without removing anything. A
// negative count allows the same member to be picked more than once.
func (r *RedisDataStructure) SRandMember(ctx context.Context, key []byte, count int) ([][]byte, error) {
	all, err := r.members(ctx, key)
	if err != nil || len(all) == 0 {
		return nil, err
	}

	if count >= 0 {
		if count > len(all) {
			count = len(all)
		}
		rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		return all[:count], nil
	}

	n := -count
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = all[rand.Intn(len(all))]
	}
	return out, nil
}

// SUnion implements SUNION across every key given.
func (r *RedisDataStructure) SUnion(ctx context.Context, keys [][]byte) ([][]byte, error) {
	seen := make(map[string][]byte)
	for _, key := range keys {
		members, err := r.members(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			seen[string(m)] = m
		}
	}
	return mapValues(seen), nil
}

// SInter implements SINTER: the intersection of every key given.
func (r *RedisDataStructure) SInter(ctx context.Context, keys [][]byte) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	base, err := r.members(ctx, keys[0])
	if err != nil {
		return nil, err
	}
	counts := make(map[string][]byte, len(base))
	for _, m := range base {
		counts[string(m)] = m
	}

	for _, key := range keys[1:] {
		members, err := r.members(ctx, key)
		if err != nil {
			return nil, err
		}
		present := make(map[string]bool, len(members))
		for _, m := range members {
			present[string(m)] = true
		}
		for k := range counts {
			if !present[k] {
				delete(counts, k)
			}
		}
	}
	return mapValues(counts), nil
}

// SDiff implements SDIFF: members of the first key absent from every other.
func (r *RedisDataStructure) SDiff(ctx context.Context, keys [][]byte) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	base, err := r.members(ctx, keys[0])
	if err != nil {
		return nil, err
	}
	remaining := make(map[string][]byte, len(base))
	for _, m := range base {
		remaining[string(m)] = m
	}

	for _, key := range keys[1:] {
		members, err := r.members(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			delete(remaining, string(m))
		}
	}
	return mapValues(remaining), nil
}

func mapValues(m map[string][]byte) [][]byte {
	out := make([][]byte, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
