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

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
)

// ========================================= Sorted Set =========================================
//
// Every member has two physical entries that must stay in lockstep
// (spec.md §4.5.5): the element side (`Z ∥ member` → encoded score) and the
// score-index side (tag S, keyed by version ∥ score ∥ member).

func zsetElementSubkey(key []byte, version uint64, member []byte) []byte {
	return codec.EncodeSub(key, version, codec.SubkeyKindZSet, member)
}

// ZAdd implements ZADD as an upsert, reporting whether member was newly
// added (false if it already existed, even if its score changed).
func (r *RedisDataStructure) ZAdd(key []byte, score float64, member []byte) (bool, error) {
	added := false
	err := r.run(key, ZSet, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(ZSet)
		}

		elemKey := zsetElementSubkey(key, m.Version, member)
		raw, present, err := r.f.Get(elemKey)
		if err != nil {
			return nil, err
		}

		var oldScore float64
		if present {
			var scoreBuf [8]byte
			copy(scoreBuf[:], raw)
			oldScore = codec.DecodeScore(scoreBuf)
			if oldScore == score {
				return nil, nil
			}
		}

		scoreBytes, err := codec.EncodeScoreBytes(score)
		if err != nil {
			return nil, ErrSyntax
		}

		var ops []redisdb.Op
		if present {
			oldIdx, err := codec.EncodeScoreIndex(key, m.Version, oldScore, member)
			if err != nil {
				return nil, err
			}
			ops = append(ops, redisdb.DeleteOp(oldIdx))
		} else {
			added = true
			m.Size++
		}

		newIdx, err := codec.EncodeScoreIndex(key, m.Version, score, member)
		if err != nil {
			return nil, err
		}

		ops = append(ops,
			redisdb.PutOp(elemKey, scoreBytes),
			redisdb.PutOp(newIdx, nil),
			redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return added, err
}

// ZScore implements ZSCORE.
func (r *RedisDataStructure) ZScore(key, member []byte) (float64, bool, error) {
	meta, exists, err := r.readMeta(key, ZSet)
	if err != nil || !exists || meta.Size == 0 {
		return 0, false, err
	}
	raw, present, err := r.f.Get(zsetElementSubkey(key, meta.Version, member))
	if err != nil || !present {
		return 0, present, err
	}
	var scoreBuf [8]byte
	copy(scoreBuf[:], raw)
	return codec.DecodeScore(scoreBuf), true, nil
}

// ZCard implements ZCARD.
func (r *RedisDataStructure) ZCard(key []byte) (uint32, error) {
	meta, exists, err := r.readMeta(key, ZSet)
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// ZRem implements ZREM, reporting whether member was present.
func (r *RedisDataStructure) ZRem(key, member []byte) (bool, error) {
	removed := false
	err := r.run(key, ZSet, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}
		elemKey := zsetElementSubkey(key, meta.Version, member)
		raw, present, err := r.f.Get(elemKey)
		if err != nil || !present {
			return nil, err
		}

		var scoreBuf [8]byte
		copy(scoreBuf[:], raw)
		score := codec.DecodeScore(scoreBuf)
		idxKey, err := codec.EncodeScoreIndex(key, meta.Version, score, member)
		if err != nil {
			return nil, err
		}

		removed = true
		m := *meta
		m.Size--

		ops := []redisdb.Op{redisdb.DeleteOp(elemKey), redisdb.DeleteOp(idxKey)}
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

// ZIncrBy implements ZINCRBY, returning the member's new score.
func (r *RedisDataStructure) ZIncrBy(key []byte, delta float64, member []byte) (float64, error) {
	var newScore float64
	err := r.run(key, ZSet, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		var m codec.Metadata
		if exists {
			m = *meta
		} else {
			m = *freshMeta(ZSet)
		}

		elemKey := zsetElementSubkey(key, m.Version, member)
		raw, present, err := r.f.Get(elemKey)
		if err != nil {
			return nil, err
		}

		var ops []redisdb.Op
		var oldScore float64
		if present {
			var scoreBuf [8]byte
			copy(scoreBuf[:], raw)
			oldScore = codec.DecodeScore(scoreBuf)
			oldIdx, err := codec.EncodeScoreIndex(key, m.Version, oldScore, member)
			if err != nil {
				return nil, err
			}
			ops = append(ops, redisdb.DeleteOp(oldIdx))
		} else {
			m.Size++
		}

		newScore = oldScore + delta
		scoreBytes, err := codec.EncodeScoreBytes(newScore)
		if err != nil {
			return nil, ErrSyntax
		}
		newIdx, err := codec.EncodeScoreIndex(key, m.Version, newScore, member)
		if err != nil {
			return nil, err
		}

		ops = append(ops,
			redisdb.PutOp(elemKey, scoreBytes),
			redisdb.PutOp(newIdx, nil),
			redisdb.PutOp(codec.EncodeMeta(key), m.Encode()))
		return ops, nil
	})
	return newScore, err
}

// RankedMember pairs a score-index entry's decoded member with its score,
// used by the range family below.
type RankedMember struct {
	Member []byte
	Score  float64
}

// ScoreBound is one endpoint of a ZRANGEBYSCORE/ZREMRANGEBYSCORE range:
// a score plus whether that exact value is excluded, the "(" prefix
// (spec.md §4.5.5). +inf/-inf are represented as an ordinary bound whose
// Value is an IEEE-754 infinity, since score comparison already does the
// right thing against it without any special-casing.
type ScoreBound struct {
	Value     float64
	Exclusive bool
}

// below reports whether score falls below this bound when used as a
// range minimum.
func (b ScoreBound) below(score float64) bool {
	return score < b.Value || (b.Exclusive && score == b.Value)
}

// above reports whether score falls above this bound when used as a
// range maximum.
func (b ScoreBound) above(score float64) bool {
	return score > b.Value || (b.Exclusive && score == b.Value)
}

// scoreIndexScan walks the whole score index for key in rank order
// (ascending unless reverse), calling fn for every entry; it stops at the
// first error fn returns or once fn returns done=true. It also checks ctx
// for cancellation every scanChunkSize entries (spec.md §5), stopping at the
// next chunk boundary rather than mid-record.
func (r *RedisDataStructure) scoreIndexScan(ctx context.Context, key []byte, version uint64, reverse bool, fn func(RankedMember) (done bool, err error)) error {
	prefix := codec.ScoreIndexVersionPrefix(key, version)
	cursor := r.f.Scan(prefix, prefix, nil, reverse)
	defer cursor.Close()

	n := 0
	for cursor.Valid() {
		if err := r.yieldEvery(ctx, n); err != nil {
			return err
		}
		n++

		_, _, score, member, err := codec.DecodeScoreIndex(cursor.Key())
		if err != nil {
			cursor.Next()
			continue
		}
		done, err := fn(RankedMember{Member: append([]byte(nil), member...), Score: score})
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		cursor.Next()
	}
	return nil
}

func normalizeRange(start, stop int64, size uint32) (int64, int64, bool) {
	n := int64(size)
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return 0, 0, false
	}
	return start, stop, true
}

// zRangeByRank implements the shared core of ZRANGE/ZREVRANGE.
func (r *RedisDataStructure) zRangeByRank(ctx context.Context, key []byte, start, stop int64, reverse bool) ([]RankedMember, error) {
	meta, exists, err := r.readMeta(key, ZSet)
	if err != nil || !exists {
		return nil, err
	}
	from, to, ok := normalizeRange(start, stop, meta.Size)
	if !ok {
		return nil, nil
	}

	var out []RankedMember
	rank := int64(0)
	err = r.scoreIndexScan(ctx, key, meta.Version, reverse, func(rm RankedMember) (bool, error) {
		if rank >= from && rank <= to {
			out = append(out, rm)
		}
		rank++
		return rank > to, nil
	})
	return out, err
}

// ZRange implements ZRANGE start stop (ascending rank order).
func (r *RedisDataStructure) ZRange(ctx context.Context, key []byte, start, stop int64) ([]RankedMember, error) {
	return r.zRangeByRank(ctx, key, start, stop, false)
}

// ZRevRange implements ZREVRANGE start stop (descending rank order).
func (r *RedisDataStructure) ZRevRange(ctx context.Context, key []byte, start, stop int64) ([]RankedMember, error) {
	return r.zRangeByRank(ctx, key, start, stop, true)
}

// ZRangeByScore implements ZRANGEBYSCORE min max [offset count]; count < 0
// means unbounded. min/max are exclusive-aware bounds (ScoreBound), covering
// the "(" and "+inf"/"-inf" forms a client may send.
func (r *RedisDataStructure) ZRangeByScore(ctx context.Context, key []byte, min, max ScoreBound, offset, count int64) ([]RankedMember, error) {
	meta, exists, err := r.readMeta(key, ZSet)
	if err != nil || !exists {
		return nil, err
	}

	var out []RankedMember
	skipped := int64(0)
	err = r.scoreIndexScan(ctx, key, meta.Version, false, func(rm RankedMember) (bool, error) {
		if min.below(rm.Score) {
			return false, nil
		}
		if max.above(rm.Score) {
			return true, nil
		}
		if skipped < offset {
			skipped++
			return false, nil
		}
		out = append(out, rm)
		return count >= 0 && int64(len(out)) >= count, nil
	})
	return out, err
}

// ZRank implements ZRANK: the count of score-index entries strictly
// preceding (score, member), or nil if member is absent.
func (r *RedisDataStructure) ZRank(ctx context.Context, key, member []byte) (int64, bool, error) {
	score, present, err := r.ZScore(key, member)
	if err != nil || !present {
		return 0, present, err
	}

	meta, _, err := r.readMeta(key, ZSet)
	if err != nil {
		return 0, false, err
	}

	rank := int64(0)
	err = r.scoreIndexScan(ctx, key, meta.Version, false, func(rm RankedMember) (bool, error) {
		if rm.Score == score && string(rm.Member) == string(member) {
			return true, nil
		}
		rank++
		return false, nil
	})
	return rank, true, err
}

// ZRevRank implements ZREVRANK.
func (r *RedisDataStructure) ZRevRank(ctx context.Context, key, member []byte) (int64, bool, error) {
	meta, exists, err := r.readMeta(key, ZSet)
	if err != nil || !exists {
		return 0, false, err
	}
	rank, present, err := r.ZRank(ctx, key, member)
	if err != nil || !present {
		return 0, present, err
	}
	return int64(meta.Size) - 1 - rank, true, nil
}

// ZPopMin implements ZPOPMIN: removes and returns the lowest-scoring
// member.
func (r *RedisDataStructure) ZPopMin(ctx context.Context, key []byte) (RankedMember, bool, error) {
	return r.zPop(ctx, key, false)
}

// ZPopMax implements ZPOPMAX: removes and returns the highest-scoring
// member.
func (r *RedisDataStructure) ZPopMax(ctx context.Context, key []byte) (RankedMember, bool, error) {
	return r.zPop(ctx, key, true)
}

func (r *RedisDataStructure) zPop(ctx context.Context, key []byte, fromTop bool) (RankedMember, bool, error) {
	var popped RankedMember
	found := false
	err := r.run(key, ZSet, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		err := r.scoreIndexScan(ctx, key, meta.Version, fromTop, func(rm RankedMember) (bool, error) {
			popped = rm
			found = true
			return true, nil
		})
		if err != nil || !found {
			return nil, err
		}

		idxKey, err := codec.EncodeScoreIndex(key, meta.Version, popped.Score, popped.Member)
		if err != nil {
			return nil, err
		}
		elemKey := zsetElementSubkey(key, meta.Version, popped.Member)

		m := *meta
		m.Size--
		ops := []redisdb.Op{redisdb.DeleteOp(idxKey), redisdb.DeleteOp(elemKey)}
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
	return popped, found, err
}

// ZRemRangeByRank implements ZREMRANGEBYRANK, returning the count removed.
func (r *RedisDataStructure) ZRemRangeByRank(ctx context.Context, key []byte, start, stop int64) (int, error) {
	members, err := r.zRangeByRank(ctx, key, start, stop, false)
	if err != nil || len(members) == 0 {
		return 0, err
	}
	return r.removeAll(key, members)
}

// ZRemRangeByScore implements ZREMRANGEBYSCORE, returning the count
// removed.
func (r *RedisDataStructure) ZRemRangeByScore(ctx context.Context, key []byte, min, max ScoreBound) (int, error) {
	members, err := r.ZRangeByScore(ctx, key, min, max, 0, -1)
	if err != nil || len(members) == 0 {
		return 0, err
	}
	return r.removeAll(key, members)
}

func (r *RedisDataStructure) removeAll(key []byte, members []RankedMember) (int, error) {
	removed := 0
	err := r.run(key, ZSet, func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if !exists || meta.Size == 0 {
			return nil, nil
		}

		m := *meta
		var ops []redisdb.Op
		for _, rm := range members {
			elemKey := zsetElementSubkey(key, meta.Version, rm.Member)
			_, present, err := r.f.Get(elemKey)
			if err != nil {
				return nil, err
			}
			if !present {
				continue
			}
			idxKey, err := codec.EncodeScoreIndex(key, meta.Version, rm.Score, rm.Member)
			if err != nil {
				return nil, err
			}
			ops = append(ops, redisdb.DeleteOp(elemKey), redisdb.DeleteOp(idxKey))
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
