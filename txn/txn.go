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

// Package txn implements the read-modify-write pattern every command
// handler uses to mutate a logical key: read metadata, compute a batch,
// commit it guarded by the version observed at read time, retry a bounded
// number of times if a concurrent writer got there first.
package txn

import (
	"context"
	"errors"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
	"github.com/redisdb/redisdb/expiry"
)

// ErrTransientConflict is returned once the retry budget is exhausted
// without a clean commit. Callers surface this as a retryable error to the
// client (RESP "TRYAGAIN ...").
var ErrTransientConflict = errors.New("txn: exceeded retry budget on conflicting write")

// DefaultRetryLimit matches spec.md §4.3's default bound on RMW retries.
const DefaultRetryLimit = 3

// Fn computes the batch of physical ops to apply given the metadata
// observed for key (nil/exists=false if the key is absent or just expired).
// Returning a nil ops slice with a nil error commits nothing and reports
// success — used when a command finds nothing to change (e.g. DEL on an
// absent key, PERSIST on a key without a TTL).
type Fn func(meta *codec.Metadata, exists bool) ([]redisdb.Op, error)

// Run executes fn against key under the RMW contract described in spec.md
// §4.3: read metadata through the lazy-expiry path, call fn to get a batch,
// commit it guarded by the version read at the start of this attempt, retry
// on conflict up to retryLimit times.
func Run(ctx context.Context, f *redisdb.Facade, key []byte, dt codec.DataType, fn Fn) error {
	return RunWithRetryLimit(ctx, f, key, dt, fn, DefaultRetryLimit)
}

// RunWithRetryLimit is Run with an explicit retry budget, used by tests and
// by callers that want a tighter or looser bound than the default.
func RunWithRetryLimit(ctx context.Context, f *redisdb.Facade, key []byte, dt codec.DataType, fn Fn, retryLimit int) error {
	for attempt := 0; attempt <= retryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		meta, exists, err := expiry.Resolve(f, key, dt)
		if err != nil {
			return err
		}

		ops, err := fn(meta, exists)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}

		expectVersion := uint64(0)
		if exists {
			expectVersion = meta.Version
		}

		metaKey := codec.EncodeMeta(key)
		err = f.ApplyIfVersion(metaKey, exists, expectVersion, ops)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redisdb.ErrConflict) {
			return err
		}
		// conflict: loop around and recompute the batch against fresh metadata
	}
	return ErrTransientConflict
}
