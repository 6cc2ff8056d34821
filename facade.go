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

package redisdb

import (
	"bytes"
	"errors"

	"github.com/redisdb/redisdb/codec"
	"github.com/redisdb/redisdb/data"
)

// ErrConflict is the retryable conflict signal: a concurrent Apply touched
// the metadata key this Apply's caller planned its batch against, so the
// caller must re-read metadata and recompute the batch.
var ErrConflict = errors.New("redisdb: concurrent write conflict, retry the transaction")

// OpKind distinguishes the two mutations a write batch can carry.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one mutation within an atomically-applied batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// PutOp and DeleteOp are small constructors used by callers building batches.
func PutOp(key, value []byte) Op   { return Op{Kind: OpPut, Key: key, Value: value} }
func DeleteOp(key []byte) Op       { return Op{Kind: OpDelete, Key: key} }

// Facade is the Engine Facade of the design: the only surface above it
// (the transaction runner, the expiry manager, and the command handlers)
// is allowed to talk to the storage engine through.
type Facade struct {
	db *Database
}

// NewFacade wraps an already-open Database.
func NewFacade(db *Database) *Facade {
	return &Facade{db: db}
}

// Underlying exposes the wrapped Database for operations the facade does
// not generalize (Stat, Backup, Sync, Close) — callers that need those
// still go through the facade for every read/write path.
func (f *Facade) Underlying() *Database {
	return f.db
}

// Get fetches a single physical key. The bool return distinguishes "absent"
// from an empty value; err is non-nil only for a genuine storage failure.
func (f *Facade) Get(physKey []byte) ([]byte, bool, error) {
	value, err := f.db.Get(physKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// MultiGet fetches several physical keys, preserving order; a missing key
// yields a nil slot rather than truncating the result.
func (f *Facade) MultiGet(physKeys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(physKeys))
	for i, k := range physKeys {
		v, ok, err := f.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

// Apply commits a batch of puts/deletes atomically: either every op lands
// or none does.
func (f *Facade) Apply(ops []Op) error {
	if len(ops) == 0 {
		return nil
	}

	wb := f.db.NewWriteBatch(DefaultWriteBatchOptions)
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if err := wb.Put(op.Key, op.Value); err != nil {
				return err
			}
		case OpDelete:
			if err := wb.Delete(op.Key); err != nil {
				return err
			}
		}
	}
	return wb.Commit()
}

// ApplyIfVersion is the compare-and-swap guard the transaction runner uses
// to detect a conflicting concurrent mutation of the same logical key: it
// re-reads metaKey under the same critical section that performs the
// write, and fails with ErrConflict if the stored record no longer matches
// what the caller observed when it planned ops.
//
// expectExists/expectVersion describe what the caller saw when it read
// metadata; metaKey is the physical M-tag key for that logical key.
func (f *Facade) ApplyIfVersion(metaKey []byte, expectExists bool, expectVersion uint64, ops []Op) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	pos := f.db.index.Get(metaKey)
	exists := pos != nil

	if exists != expectExists {
		return ErrConflict
	}

	if exists {
		raw, err := f.db.getValueByPosition(pos)
		if err != nil {
			return err
		}
		meta, err := codec.DecodeMetadata(raw)
		if err != nil {
			return err
		}
		if meta.Version != expectVersion {
			return ErrConflict
		}
	}

	return f.applyLocked(ops)
}

// applyLocked assumes f.db.mu is already held.
func (f *Facade) applyLocked(ops []Op) error {
	if len(ops) == 0 {
		return nil
	}

	wb := f.db.NewWriteBatch(DefaultWriteBatchOptions)
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if len(op.Key) == 0 {
				return ErrKeyIsEmpty
			}
			wb.pendingWrites[string(op.Key)] = &data.LogRecord{Key: op.Key, Value: op.Value, Type: data.LogRecordNormal}
		case OpDelete:
			if len(op.Key) == 0 {
				return ErrKeyIsEmpty
			}
			wb.pendingWrites[string(op.Key)] = &data.LogRecord{Key: op.Key, Type: data.LogRecordDeleted}
		}
	}
	return wb.commitLocked()
}

// Cursor iterates physical keys in ascending (or descending) order within a
// half-open [lower, upper) bound, optionally restricted to a shared prefix.
type Cursor struct {
	it     *Iterator
	lower  []byte
	upper  []byte
	prefix []byte
}

// Scan opens a Cursor over [lower, upper) restricted to keys carrying
// prefix (pass nil upper for an unbounded scan, nil prefix to scan
// everything in range). Scan takes no record limit: the cursor runs to the
// end of the range unless the caller stops calling Next.
func (f *Facade) Scan(prefix, lower, upper []byte, reverse bool) *Cursor {
	opts := IteratorOptions{Prefix: prefix, Reverse: reverse}
	it := f.db.NewIterator(opts)

	c := &Cursor{it: it, lower: lower, upper: upper, prefix: prefix}
	c.seekStart(reverse)
	return c
}

func (c *Cursor) seekStart(reverse bool) {
	if !reverse && len(c.lower) > 0 {
		c.it.Seek(c.lower)
		return
	}
	if reverse && len(c.upper) > 0 {
		c.it.Seek(c.upper)
		// A reverse Seek lands on the greatest key <= upper; step past it
		// when it equals upper, since upper is exclusive.
		if c.it.Valid() && bytes.Compare(c.it.Key(), c.upper) >= 0 {
			c.it.Next()
		}
		return
	}
	c.it.Rewind()
}

// Valid reports whether the cursor currently sits on an in-range record.
func (c *Cursor) Valid() bool {
	if !c.it.Valid() {
		return false
	}
	key := c.it.Key()
	if len(c.lower) > 0 && bytes.Compare(key, c.lower) < 0 {
		return false
	}
	if len(c.upper) > 0 && bytes.Compare(key, c.upper) >= 0 {
		return false
	}
	return true
}

// Next advances the cursor.
func (c *Cursor) Next() { c.it.Next() }

// Key returns the physical key at the current position.
func (c *Cursor) Key() []byte { return c.it.Key() }

// Value returns the value at the current position.
func (c *Cursor) Value() ([]byte, error) { return c.it.Value() }

// Close releases the cursor's resources.
func (c *Cursor) Close() { c.it.Close() }

// Snapshot is a consistent read view used by long scans; the index
// iterator underneath already reflects a single point-in-time view of the
// committed keyspace, so Snapshot is a thin marker type that documents the
// intent at call sites (KEYS, SMEMBERS, range commands).
type Snapshot struct {
	f *Facade
}

// Snapshot takes a consistent read view.
func (f *Facade) Snapshot() *Snapshot {
	return &Snapshot{f: f}
}

// Scan opens a Cursor against this snapshot's view.
func (s *Snapshot) Scan(prefix, lower, upper []byte, reverse bool) *Cursor {
	return s.f.Scan(prefix, lower, upper, reverse)
}
