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

package expiry

import (
	"context"
	"errors"
	"time"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/codec"
	"github.com/rs/zerolog"
)

// SweeperOptions controls the active-expiry background task of spec.md §4.4.
type SweeperOptions struct {
	// Interval between ticks.
	Interval time.Duration
	// BatchSize bounds how many expired entries one tick processes, so a
	// backlog after a cold start does not monopolize the engine lock.
	BatchSize int
	// StaleVersionSampleSize bounds how many stale-version D/S subkeys one
	// tick reclaims, per the version-bump backlog note in spec.md §9.
	StaleVersionSampleSize int
}

// DefaultSweeperOptions matches the defaults spec.md §6 calls for.
func DefaultSweeperOptions() SweeperOptions {
	return SweeperOptions{
		Interval:               1 * time.Second,
		BatchSize:              200,
		StaleVersionSampleSize: 200,
	}
}

// Sweeper periodically scans the X-tagged expiration index and deletes keys
// whose TTL has elapsed, double-checking live metadata before every delete
// so a racing SET that refreshed the key cannot be clobbered.
type Sweeper struct {
	f       *redisdb.Facade
	opts    SweeperOptions
	log     zerolog.Logger
	stopped chan struct{}

	// OnTick, if set, is called after every tick with the number of keys
	// that tick expired (0 on a no-op tick), so a caller can feed a metrics
	// registry without re-implementing the ticking loop.
	OnTick func(expired int)
}

// NewSweeper builds a Sweeper bound to f; call Run to start its loop.
func NewSweeper(f *redisdb.Facade, opts SweeperOptions, log zerolog.Logger) *Sweeper {
	return &Sweeper{f: f, opts: opts, log: log.With().Str("component", "sweeper").Logger(), stopped: make(chan struct{})}
}

// Run blocks, ticking until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Tick()
			if err != nil {
				s.log.Error().Err(err).Msg("sweep tick failed")
				continue
			}
			if n > 0 {
				s.log.Debug().Int("expired", n).Msg("sweep tick reclaimed keys")
			}
			if s.OnTick != nil {
				s.OnTick(n)
			}
		}
	}
}

// Stopped is closed once Run has returned.
func (s *Sweeper) Stopped() <-chan struct{} { return s.stopped }

// Tick runs one sweep pass and returns the number of keys it expired.
func (s *Sweeper) Tick() (int, error) {
	nowMs := time.Now().UnixMilli()
	cursor := s.f.Scan([]byte{codec.TagExpire}, codec.ExpireIndexLowerBound(), codec.ExpireIndexPrefixUpTo(nowMs), false)
	defer cursor.Close()

	expired := 0
	for cursor.Valid() && expired < s.opts.BatchSize {
		expireAtMs, key, err := codec.DecodeExpireIndex(cursor.Key())
		if err != nil {
			cursor.Next()
			continue
		}

		did, err := s.sweepOne(key, expireAtMs)
		if err != nil {
			return expired, err
		}
		if did {
			expired++
		}
		cursor.Next()
	}

	if err := s.reclaimStaleVersions(); err != nil {
		return expired, err
	}

	return expired, nil
}

// sweepOne double-checks the live metadata still references expireAtMs
// before deleting: if a concurrent SET (or SET with a new TTL) landed
// between the index scan and here, the live record no longer agrees and
// this entry is stale index data from the old version, safe to drop without
// touching the live M record.
func (s *Sweeper) sweepOne(key []byte, expireAtMs int64) (bool, error) {
	metaKey := codec.EncodeMeta(key)
	raw, ok, err := s.f.Get(metaKey)
	if err != nil {
		return false, err
	}
	if !ok {
		// metadata already gone; just drop the dangling index entry.
		return true, s.f.Apply([]redisdb.Op{redisdb.DeleteOp(codec.EncodeExpireIndex(expireAtMs, key))})
	}

	meta, err := codec.DecodeMetadata(raw)
	if err != nil {
		return false, err
	}

	if meta.ExpireMs != expireAtMs {
		// stale index entry from a previous TTL; live record has since moved on.
		return false, s.f.Apply([]redisdb.Op{redisdb.DeleteOp(codec.EncodeExpireIndex(expireAtMs, key))})
	}

	ops := []redisdb.Op{
		redisdb.DeleteOp(metaKey),
		redisdb.DeleteOp(codec.EncodeExpireIndex(expireAtMs, key)),
	}
	err = s.f.ApplyIfVersion(metaKey, true, meta.Version, ops)
	if errors.Is(err, redisdb.ErrConflict) {
		// another writer touched this key between our Get and the guarded
		// Apply; leave it for the next tick.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// reclaimStaleVersions samples D/S subkeys whose embedded version trails the
// live metadata version for their logical key and deletes them: the backlog
// left behind by the O(1) version-bump delete described in spec.md §9.
func (s *Sweeper) reclaimStaleVersions() error {
	cursor := s.f.Scan([]byte{codec.TagData}, nil, nil, false)
	defer cursor.Close()

	sampled := 0
	for cursor.Valid() && sampled < s.opts.StaleVersionSampleSize {
		key, version, _, _, err := codec.DecodeSub(cursor.Key())
		if err != nil {
			cursor.Next()
			continue
		}
		sampled++

		raw, ok, err := s.f.Get(codec.EncodeMeta(key))
		if err != nil {
			return err
		}

		stale := !ok
		if ok {
			meta, err := codec.DecodeMetadata(raw)
			if err == nil {
				stale = version != meta.Version
			}
		}

		if stale {
			physKey := append([]byte(nil), cursor.Key()...)
			if err := s.f.Apply([]redisdb.Op{redisdb.DeleteOp(physKey)}); err != nil {
				return err
			}
		}

		cursor.Next()
	}
	return nil
}
