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

func TestRedisDataStructure_HSetHGet(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	isNew, err := rds.HSet(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)
	assert.True(t, isNew)

	isNew, err = rds.HSet(key, []byte("f1"), []byte("v2"))
	assert.Nil(t, err)
	assert.False(t, isNew)

	value, exists, err := rds.HGet(key, []byte("f1"))
	assert.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, []byte("v2"), value)

	_, exists, err = rds.HGet(key, []byte("missing"))
	assert.Nil(t, err)
	assert.False(t, exists)
}

func TestRedisDataStructure_HSetNX(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	wrote, err := rds.HSetNX(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)
	assert.True(t, wrote)

	wrote, err = rds.HSetNX(key, []byte("f1"), []byte("v2"))
	assert.Nil(t, err)
	assert.False(t, wrote)

	value, _, err := rds.HGet(key, []byte("f1"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("v1"), value)
}

func TestRedisDataStructure_HDel(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.HSet(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)

	existed, err := rds.HDel(key, []byte("f1"))
	assert.Nil(t, err)
	assert.True(t, existed)

	existed, err = rds.HDel(key, []byte("f1"))
	assert.Nil(t, err)
	assert.False(t, existed)
}

func TestRedisDataStructure_HLen(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	n, err := rds.HLen(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0), n)

	_, err = rds.HSet(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)
	_, err = rds.HSet(key, []byte("f2"), []byte("v2"))
	assert.Nil(t, err)

	n, err = rds.HLen(key)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestRedisDataStructure_HIncrBy(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	n, err := rds.HIncrBy(key, []byte("counter"), 5)
	assert.Nil(t, err)
	assert.Equal(t, int64(5), n)

	n, err = rds.HIncrBy(key, []byte("counter"), -2)
	assert.Nil(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRedisDataStructure_HGetAllKeysVals(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.HSet(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)
	_, err = rds.HSet(key, []byte("f2"), []byte("v2"))
	assert.Nil(t, err)

	all, err := rds.HGetAll(key)
	assert.Nil(t, err)
	assert.Len(t, all, 2)

	keys, err := rds.HKeys(key)
	assert.Nil(t, err)
	assert.Len(t, keys, 2)

	vals, err := rds.HVals(key)
	assert.Nil(t, err)
	assert.Len(t, vals, 2)
}

func TestRedisDataStructure_HMGet(t *testing.T) {
	rds := newTestRDS(t)
	key := utils.GetTestKey(1)

	_, err := rds.HSet(key, []byte("f1"), []byte("v1"))
	assert.Nil(t, err)

	values, err := rds.HMGet(key, [][]byte{[]byte("f1"), []byte("missing")})
	assert.Nil(t, err)
	assert.Equal(t, []byte("v1"), values[0])
	assert.Nil(t, values[1])
}
