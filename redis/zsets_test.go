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
	"math"
	"testing"

	"github.com/redisdb/redisdb/utils"
	"github.com/stretchr/testify/assert"
)

func TestRedisDataStructure_ZAddZScore(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	added, err := rds.ZAdd(key, 1.5, []byte("m1"))
	assert.Nil(t, err)
	assert.True(t, added)

	added, err = rds.ZAdd(key, 2.5, []byte("m1"))
	assert.Nil(t, err)
	assert.False(t, added)

	score, exists, err := rds.ZScore(key, []byte("m1"))
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2.5, score)
}

func TestRedisDataStructure_ZRemZCard(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 1, []byte("m1"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("m2"))
	assert.Nil(t, err)

	n, err := rds.ZCard(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), n)

	removed, err := rds.ZRem(key, []byte("m1"))
	assert.Nil(t, err)
	assert.True(t, removed)

	n, err = rds.ZCard(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), n)
}

func TestRedisDataStructure_ZIncrBy(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	score, err := rds.ZIncrBy(key, 5, []byte("m1"))
	assert.Nil(t, err)
	assert.Equal(t, 5.0, score)

	score, err = rds.ZIncrBy(key, -2, []byte("m1"))
	assert.Nil(t, err)
	assert.Equal(t, 3.0, score)
}

func TestRedisDataStructure_ZRangeZRevRange(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 3, []byte("c"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 1, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("b"))
	assert.Nil(t, err)

	ascending, err := rds.ZRange(context.Background(), key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), ascending[0].Member)
	assert.Equal(t, []byte("c"), ascending[2].Member)

	descending, err := rds.ZRevRange(context.Background(), key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, []byte("c"), descending[0].Member)
}

func TestRedisDataStructure_ZRangeByScore(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 1, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("b"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 3, []byte("c"))
	assert.Nil(t, err)

	out, err := rds.ZRangeByScore(context.Background(), key, ScoreBound{Value: 2}, ScoreBound{Value: 3}, 0, -1)
	assert.Nil(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, []byte("b"), out[0].Member)
}

func TestRedisDataStructure_ZRangeByScoreExclusiveAndInf(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 1, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("b"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 3, []byte("c"))
	assert.Nil(t, err)

	// (2 3 excludes the score-2 member.
	out, err := rds.ZRangeByScore(context.Background(), key, ScoreBound{Value: 2, Exclusive: true}, ScoreBound{Value: 3}, 0, -1)
	assert.Nil(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, []byte("c"), out[0].Member)

	// -inf +inf matches every member regardless of score.
	out, err = rds.ZRangeByScore(context.Background(), key, ScoreBound{Value: math.Inf(-1)}, ScoreBound{Value: math.Inf(1)}, 0, -1)
	assert.Nil(t, err)
	assert.Len(t, out, 3)
}

func TestRedisDataStructure_ZRankZRevRank(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 1, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("b"))
	assert.Nil(t, err)

	rank, exists, err := rds.ZRank(context.Background(), key, []byte("b"))
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(1), rank)

	revRank, exists, err := rds.ZRevRank(context.Background(), key, []byte("b"))
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(0), revRank)
}

func TestRedisDataStructure_ZPopMinMax(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.ZAdd(key, 1, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.ZAdd(key, 2, []byte("b"))
	assert.Nil(t, err)

	min, found, err := rds.ZPopMin(context.Background(), key)
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("a"), min.Member)

	max, found, err := rds.ZPopMax(context.Background(), key)
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("b"), max.Member)
}

func TestRedisDataStructure_ZRemRangeByRankAndScore(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	for i, m := range []string{"a", "b", "c", "d"} {
		_, err := rds.ZAdd(key, float64(i+1), []byte(m))
		assert.Nil(t, err)
	}

	removed, err := rds.ZRemRangeByRank(context.Background(), key, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, removed)

	removed, err = rds.ZRemRangeByScore(context.Background(), key, ScoreBound{Value: 3}, ScoreBound{Value: 4})
	assert.Nil(t, err)
	assert.Equal(t, 2, removed)

	n, err := rds.ZCard(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), n)
}
