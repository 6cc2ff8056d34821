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

// Package dispatch maps a command name to its handler and runs it on a
// bounded worker pool, so a burst of expensive commands across many
// connections cannot starve the engine of goroutines.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/redisdb/redisdb/redis"
	"golang.org/x/sync/semaphore"
)

// Handler executes one command's logic against args (the command name
// itself excluded) and returns a reply value a RESP encoder can serialize
// directly (nil, bool, int64, string, []byte, or []interface{} of the same).
type Handler func(ctx context.Context, args [][]byte) (interface{}, error)

// Options controls the Dispatcher's worker pool and scan chunking.
type Options struct {
	// WorkerPoolSize bounds how many commands run concurrently across every
	// connection the server accepts.
	WorkerPoolSize int
	// ScanChunkSize bounds how many records a single scan-backed command
	// (KEYS, SMEMBERS, range family) walks before checking for context
	// cancellation, so a slow client or a cancelled connection cannot pin a
	// worker slot on an unbounded scan.
	ScanChunkSize int
}

// DefaultOptions matches the worker pool sizing spec.md §5 and §6 call for.
func DefaultOptions() Options {
	return Options{WorkerPoolSize: 32, ScanChunkSize: 256}
}

// Dispatcher is stateless beyond the shared data structure handle and the
// worker pool semaphore: it holds no per-connection state, matching spec.md
// §4.6 and §5.
type Dispatcher struct {
	rds   *redis.RedisDataStructure
	sem   *semaphore.Weighted
	table map[string]Handler
	opts  Options
}

// New builds a Dispatcher with the full command table wired to rds.
func New(rds *redis.RedisDataStructure, opts Options) *Dispatcher {
	rds.SetScanChunkSize(opts.ScanChunkSize)
	d := &Dispatcher{
		rds:  rds,
		sem:  semaphore.NewWeighted(int64(opts.WorkerPoolSize)),
		opts: opts,
	}
	d.table = buildTable(d)
	return d
}

// ErrUnknownCommand is returned by Execute for a command name absent from
// the table.
type ErrUnknownCommand string

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("ERR unknown command '%s'", string(e))
}

// Execute looks up name in the static command table and runs it on the
// bounded worker pool. It blocks until a worker slot is free or ctx is
// cancelled.
func (d *Dispatcher) Execute(ctx context.Context, name string, args [][]byte) (interface{}, error) {
	handler, ok := d.table[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownCommand(name)
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	reply, err := handler(ctx, args)
	return reply, translateError(err)
}

// HasCommand reports whether name is in the command table, without running
// anything.
func (d *Dispatcher) HasCommand(name string) bool {
	_, ok := d.table[strings.ToLower(name)]
	return ok
}
