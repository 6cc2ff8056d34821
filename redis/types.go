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

// Package redis implements the Redis command surface on top of the codec,
// txn and expiry packages: every exported method here is a command handler
// composing those three against a shared Facade.
package redis

import (
	"context"
	"time"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
	"github.com/redisdb/redisdb/expiry"
	"github.com/redisdb/redisdb/txn"
)

// DataType re-exports codec's datatype tag under the names command handlers
// read most naturally.
type DataType = codec.DataType

const (
	String DataType = codec.TypeString
	Hash   DataType = codec.TypeHash
	Set    DataType = codec.TypeSet
	List   DataType = codec.TypeList
	ZSet   DataType = codec.TypeZSet
)

// DefaultScanChunkSize is the yieldEvery period a RedisDataStructure uses
// until SetScanChunkSize overrides it from configuration.
const DefaultScanChunkSize = 256

// RedisDataStructure is the command-handler service: one instance per open
// database, shared across every connection the server accepts.
type RedisDataStructure struct {
	f             *redisdb.Facade
	scanChunkSize int
}

// NewRedisDataStructure opens (or reopens) the storage engine at the given
// options and wraps it in the command-handler service.
func NewRedisDataStructure(options redisdb.Options) (*RedisDataStructure, error) {
	db, err := redisdb.Open(options)
	if err != nil {
		return nil, err
	}
	return &RedisDataStructure{f: redisdb.NewFacade(db), scanChunkSize: DefaultScanChunkSize}, nil
}

// SetScanChunkSize overrides the record count yieldEvery checks for
// cancellation at; n <= 0 restores DefaultScanChunkSize.
func (r *RedisDataStructure) SetScanChunkSize(n int) {
	if n <= 0 {
		n = DefaultScanChunkSize
	}
	r.scanChunkSize = n
}

// yieldEvery is the chunk-boundary cancellation check long-running scan
// loops call once per iteration (spec.md §5's Cancellation invariant): it is
// a no-op except every scanChunkSize-th call, when it reports ctx's error.
func (r *RedisDataStructure) yieldEvery(ctx context.Context, n int) error {
	size := r.scanChunkSize
	if size <= 0 {
		size = DefaultScanChunkSize
	}
	if n%size != 0 {
		return nil
	}
	return ctx.Err()
}

// Close releases the underlying storage engine.
func (r *RedisDataStructure) Close() error {
	return r.f.Underlying().Close()
}

// Facade exposes the wrapped Engine Facade, used by the expiry sweeper and
// the dispatch layer's metrics collector.
func (r *RedisDataStructure) Facade() *redisdb.Facade {
	return r.f
}

// readMeta resolves key's metadata through the lazy-expiry path and
// validates its datatype, giving every read-only command handler a single
// call that already accounts for expiry and WRONGTYPE.
func (r *RedisDataStructure) readMeta(key []byte, dt DataType) (*codec.Metadata, bool, error) {
	meta, exists, err := expiry.Resolve(r.f, key, dt)
	if err != nil {
		return nil, false, err
	}
	if exists && meta.DataType != dt {
		return nil, false, ErrWrongType
	}
	return meta, exists, nil
}

// RetryLimit bounds the RMW retry budget every run/runAny call uses; it
// defaults to txn.DefaultRetryLimit and is overridden at process startup from
// configuration.
var RetryLimit = txn.DefaultRetryLimit

// run executes fn under the RMW contract of the transaction runner,
// centralizing the WRONGTYPE check every mutating command needs.
func (r *RedisDataStructure) run(key []byte, dt DataType, fn txn.Fn) error {
	wrapped := func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error) {
		if exists && meta.DataType != dt {
			return nil, ErrWrongType
		}
		return fn(meta, exists)
	}
	return txn.RunWithRetryLimit(context.Background(), r.f, key, dt, wrapped, RetryLimit)
}

// freshMeta builds the metadata a logical key gets the first time it is
// created, versioned off the current time so a version never repeats
// across a process restart within the same millisecond-resolution clock.
func freshMeta(dt DataType) *codec.Metadata {
	m := &codec.Metadata{DataType: dt, Version: uint64(time.Now().UnixNano())}
	if dt == List {
		m.Head = codec.InitialListMark
		m.Tail = codec.InitialListMark
	}
	return m
}
