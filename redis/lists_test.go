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
	"testing"

	"github.com/redisdb/redisdb/utils"
	"github.com/stretchr/testify/assert"
)

func TestRedisDataStructure_PushPop(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	n, err := rds.RPush(key, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), n)

	n, err = rds.RPush(key, []byte("b"))
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), n)

	n, err = rds.LPush(key, []byte("z"))
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), n)

	elements, err := rds.LRange(key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("z"), []byte("a"), []byte("b")}, elements)

	v, err := rds.LPop(key)
	assert.Nil(t, err)
	assert.Equal(t, []byte("z"), v)

	v, err = rds.RPop(key)
	assert.Nil(t, err)
	assert.Equal(t, []byte("b"), v)

	n, err = rds.LLen(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), n)
}

func TestRedisDataStructure_LIndexLSet(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.RPush(key, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.RPush(key, []byte("b"))
	assert.Nil(t, err)

	v, exists, err := rds.LIndex(key, 0)
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, []byte("a"), v)

	v, exists, err = rds.LIndex(key, -1)
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, []byte("b"), v)

	err = rds.LSet(key, 0, []byte("aa"))
	assert.Nil(t, err)

	v, _, err = rds.LIndex(key, 0)
	assert.Nil(t, err)
	assert.Equal(t, []byte("aa"), v)
}

func TestRedisDataStructure_LTrim(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	for _, v := range []string{"a", "b", "c", "d"} {
		_, err := rds.RPush(key, []byte(v))
		assert.Nil(t, err)
	}

	err := rds.LTrim(key, 1, 2)
	assert.Nil(t, err)

	elements, err := rds.LRange(key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, elements)
}

func TestRedisDataStructure_LInsert(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.RPush(key, []byte("a"))
	assert.Nil(t, err)
	_, err = rds.RPush(key, []byte("c"))
	assert.Nil(t, err)

	n, err := rds.LInsert(key, true, []byte("c"), []byte("b"))
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), n)

	elements, err := rds.LRange(key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, elements)
}

func TestRedisDataStructure_LRem(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	for _, v := range []string{"a", "b", "a", "c", "a"} {
		_, err := rds.RPush(key, []byte(v))
		assert.Nil(t, err)
	}

	removed, err := rds.LRem(key, 0, []byte("a"))
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), removed)

	elements, err := rds.LRange(key, 0, -1)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, elements)
}
