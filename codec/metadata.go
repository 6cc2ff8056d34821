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

package codec

import (
	"encoding/binary"
	"math"
)

// fixed header: tag(1) + version(8) + expireMs(8) + size(4)
const fixedMetaHeaderSize = 1 + 8 + 8 + 4

// listExtraSize accounts for the head/tail fields list metadata carries.
const listExtraSize = 8 + 8

// Metadata is the per-logical-key header described in spec §3.1: datatype
// tag, expiration timestamp, monotonic version and datatype-specific
// counters.
type Metadata struct {
	DataType DataType
	ExpireMs int64  // 0 means no TTL
	Version  uint64 // monotonic, bumped on every O(1) logical delete
	Size     uint32 // live element count (hash fields, set/zset members, list length)

	// Head/Tail are used exclusively by List: the dense logical index range
	// is [Head, Tail).
	Head int64
	Tail int64

	// Value holds the inlined payload for String keys (spec.md §3.3: "value
	// inlined in metadata"). Unused by every other datatype.
	Value []byte
}

// Encode serializes the metadata record.
func (m *Metadata) Encode() []byte {
	size := fixedMetaHeaderSize
	if m.DataType == TypeList {
		size += listExtraSize
	}
	if m.DataType == TypeString {
		size += len(m.Value)
	}

	buf := make([]byte, size)
	buf[0] = m.DataType

	idx := 1
	binary.BigEndian.PutUint64(buf[idx:], m.Version)
	idx += 8
	binary.BigEndian.PutUint64(buf[idx:], uint64(m.ExpireMs))
	idx += 8
	binary.BigEndian.PutUint32(buf[idx:], m.Size)
	idx += 4

	if m.DataType == TypeList {
		binary.BigEndian.PutUint64(buf[idx:], uint64(m.Head))
		idx += 8
		binary.BigEndian.PutUint64(buf[idx:], uint64(m.Tail))
	}

	if m.DataType == TypeString {
		copy(buf[idx:], m.Value)
	}

	return buf
}

// DecodeMetadata parses a metadata record previously produced by Encode.
// An unrecognized record shape is an InternalDecodeError (ErrDecodeRecord).
func DecodeMetadata(buf []byte) (*Metadata, error) {
	if len(buf) < fixedMetaHeaderSize {
		return nil, ErrDecodeRecord
	}

	m := &Metadata{DataType: buf[0]}
	if m.DataType > TypeZSet {
		return nil, ErrDecodeRecord
	}
	idx := 1
	m.Version = binary.BigEndian.Uint64(buf[idx:])
	idx += 8
	m.ExpireMs = int64(binary.BigEndian.Uint64(buf[idx:]))
	idx += 8
	m.Size = binary.BigEndian.Uint32(buf[idx:])
	idx += 4

	if m.DataType == TypeList {
		if len(buf) < idx+listExtraSize {
			return nil, ErrDecodeRecord
		}
		m.Head = int64(binary.BigEndian.Uint64(buf[idx:]))
		idx += 8
		m.Tail = int64(binary.BigEndian.Uint64(buf[idx:]))
		idx += 8
	}

	if m.DataType == TypeString && idx < len(buf) {
		m.Value = append([]byte(nil), buf[idx:]...)
	}

	return m, nil
}

// InitialListMark is the starting Head/Tail value for a freshly-created
// list, chosen far from both numeric bounds so LPUSH/RPUSH can run for a
// very long time before the dense index range overflows.
const InitialListMark int64 = math.MaxInt64 / 2
