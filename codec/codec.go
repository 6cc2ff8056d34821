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

// Package codec maps logical Redis keys and composite values onto the flat
// byte-keyed namespace the storage engine actually stores. Every physical
// key begins with a one-byte kind tag so the four record families (metadata,
// per-element subkeys, the sorted-set score index, and the expiration
// index) never collide.
package codec

import (
	"encoding/binary"
	"errors"
)

// Tag is the one-byte namespace discriminator prefixed to every physical key.
type Tag = byte

const (
	// TagMeta marks a metadata record: M ∥ len(key) ∥ key.
	TagMeta Tag = 'M'
	// TagData marks a datatype element record: D ∥ len(key) ∥ key ∥ version ∥ suffix.
	TagData Tag = 'D'
	// TagScore marks a sorted-set score-index record: S ∥ len(key) ∥ key ∥ version ∥ score ∥ member.
	TagScore Tag = 'S'
	// TagExpire marks an expiration-index record: X ∥ expire_ts ∥ len(key) ∥ key.
	TagExpire Tag = 'X'
)

// DataType identifies which Redis composite structure a logical key holds.
type DataType = byte

const (
	TypeString DataType = iota
	TypeHash
	TypeSet
	TypeList
	TypeZSet
)

// TypeName returns the Redis-visible type name, or "none" for an unknown tag.
func TypeName(dt DataType) string {
	switch dt {
	case TypeString:
		return "string"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeList:
		return "list"
	case TypeZSet:
		return "zset"
	default:
		return "none"
	}
}

// SubkeyKind is the datatype discriminator byte embedded in the D-tag
// suffix, so a hash field and a set member never alias under the same key.
type SubkeyKind = byte

const (
	SubkeyKindHash SubkeyKind = 'H'
	SubkeyKindSet  SubkeyKind = 'S'
	SubkeyKindList SubkeyKind = 'L'
	SubkeyKindZSet SubkeyKind = 'Z'
)

var (
	// ErrDecodeRecord is the InternalDecodeError kind: an on-disk physical
	// key could not be parsed back into its logical components.
	ErrDecodeRecord = errors.New("codec: unreadable physical record")
)

// putLenPrefixed appends a 4-byte big-endian length prefix followed by b.
func putLenPrefixed(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, b...)
	return buf
}

// readLenPrefixed reads a 4-byte big-endian length prefix followed by that
// many bytes, returning the slice and the remaining input.
func readLenPrefixed(buf []byte) (val, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, ErrDecodeRecord
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, ErrDecodeRecord
	}
	return buf[:n], buf[n:], nil
}

// EncodeMeta builds the physical key for a logical key's metadata record:
// M ∥ len(key) ∥ key.
func EncodeMeta(key []byte) []byte {
	buf := make([]byte, 0, 1+4+len(key))
	buf = append(buf, TagMeta)
	buf = putLenPrefixed(buf, key)
	return buf
}

// DecodeMeta splits an M-tagged physical key back into its logical key.
func DecodeMeta(physKey []byte) (key []byte, err error) {
	if len(physKey) < 1 || physKey[0] != TagMeta {
		return nil, ErrDecodeRecord
	}
	key, _, err = readLenPrefixed(physKey[1:])
	return key, err
}

// MetaLowerBound and MetaUpperBound bound a full scan of every metadata
// record, used by KEYS and the sweeper's stale-version backlog scan.
func MetaLowerBound() []byte { return []byte{TagMeta} }
func MetaUpperBound() []byte { return []byte{TagMeta + 1} }

// EncodeSub builds the physical key for a datatype element:
// D ∥ len(key) ∥ key ∥ version ∥ kind ∥ suffix.
func EncodeSub(key []byte, version uint64, kind SubkeyKind, suffix []byte) []byte {
	buf := make([]byte, 0, 1+4+len(key)+8+1+len(suffix))
	buf = append(buf, TagData)
	buf = putLenPrefixed(buf, key)
	var verBuf [8]byte
	binary.BigEndian.PutUint64(verBuf[:], version)
	buf = append(buf, verBuf[:]...)
	buf = append(buf, kind)
	buf = append(buf, suffix...)
	return buf
}

// SubPrefix returns the physical-key prefix shared by every live element of
// the given (key, version, kind) — used to prefix-scan hash fields, set
// members, or list indices.
func SubPrefix(key []byte, version uint64, kind SubkeyKind) []byte {
	buf := make([]byte, 0, 1+4+len(key)+8+1)
	buf = append(buf, TagData)
	buf = putLenPrefixed(buf, key)
	var verBuf [8]byte
	binary.BigEndian.PutUint64(verBuf[:], version)
	buf = append(buf, verBuf[:]...)
	buf = append(buf, kind)
	return buf
}

// DecodeSub splits a D-tagged physical key back into its logical key,
// version, kind byte and suffix.
func DecodeSub(physKey []byte) (key []byte, version uint64, kind SubkeyKind, suffix []byte, err error) {
	if len(physKey) < 1 || physKey[0] != TagData {
		return nil, 0, 0, nil, ErrDecodeRecord
	}
	key, rest, err := readLenPrefixed(physKey[1:])
	if err != nil {
		return nil, 0, 0, nil, err
	}
	if len(rest) < 9 {
		return nil, 0, 0, nil, ErrDecodeRecord
	}
	version = binary.BigEndian.Uint64(rest[:8])
	kind = rest[8]
	suffix = rest[9:]
	return key, version, kind, suffix, nil
}

// EncodeListIndex encodes a dense list index as an 8-byte big-endian value
// with the sign bit flipped so that physical ordering matches index ordering
// even across negative indices (used internally before LTRIM/LINSERT
// renumbering).
func EncodeListIndex(index int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(index)^signBit)
	return buf[:]
}

// DecodeListIndex inverts EncodeListIndex.
func DecodeListIndex(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ signBit)
}

const signBit = uint64(1) << 63

// EncodeExpireIndex builds the physical key for an expiration-index record:
// X ∥ expire_ts_be ∥ len(key) ∥ key. expire_ts is biased so that negative or
// zero timestamps still sort correctly ahead of positive ones.
func EncodeExpireIndex(expireAtMs int64, key []byte) []byte {
	buf := make([]byte, 0, 1+8+4+len(key))
	buf = append(buf, TagExpire)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(expireAtMs)^signBit)
	buf = append(buf, tsBuf[:]...)
	buf = putLenPrefixed(buf, key)
	return buf
}

// DecodeExpireIndex splits an X-tagged physical key back into its
// expiration timestamp and logical key.
func DecodeExpireIndex(physKey []byte) (expireAtMs int64, key []byte, err error) {
	if len(physKey) < 9 || physKey[0] != TagExpire {
		return 0, nil, ErrDecodeRecord
	}
	ts := binary.BigEndian.Uint64(physKey[1:9]) ^ signBit
	key, _, err = readLenPrefixed(physKey[9:])
	if err != nil {
		return 0, nil, err
	}
	return int64(ts), key, nil
}

// ExpireIndexPrefixUpTo returns the upper bound for a range scan of every
// expiration-index entry whose timestamp is <= tsMs (used by the sweeper).
func ExpireIndexPrefixUpTo(tsMs int64) []byte {
	buf := make([]byte, 0, 9)
	buf = append(buf, TagExpire)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(tsMs)^signBit)
	buf = append(buf, tsBuf[:]...)
	// the byte just after the biased timestamp closes the range inclusively
	return append(buf, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
}

// ExpireIndexLowerBound is the lowest possible physical key under tag X.
func ExpireIndexLowerBound() []byte {
	return []byte{TagExpire}
}
