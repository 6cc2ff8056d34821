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
	"errors"
	"math"
)

// ErrInvalidScore is returned by EncodeScore for NaN, which has no defined
// position in the sorted-set ordering.
var ErrInvalidScore = errors.New("codec: NaN is not a valid sorted-set score")

// EncodeScore reorders the IEEE-754 bit pattern of f so that unsigned
// big-endian byte order matches numeric order: flip the sign bit for
// non-negative numbers, invert every bit for negative numbers.
func EncodeScore(f float64) ([8]byte, error) {
	var out [8]byte
	if math.IsNaN(f) {
		return out, ErrInvalidScore
	}

	bits := math.Float64bits(f)
	if bits&signBit64 != 0 {
		// negative: invert everything so more-negative sorts first
		bits = ^bits
	} else {
		// non-negative: flip the sign bit so it sorts after negatives
		bits |= signBit64
	}

	binary.BigEndian.PutUint64(out[:], bits)
	return out, nil
}

// DecodeScore inverts EncodeScore.
func DecodeScore(b [8]byte) float64 {
	bits := binary.BigEndian.Uint64(b[:])
	if bits&signBit64 != 0 {
		bits &^= signBit64
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

const signBit64 = uint64(1) << 63

// EncodeScoreBytes is a convenience wrapper returning a slice instead of an array.
func EncodeScoreBytes(f float64) ([]byte, error) {
	arr, err := EncodeScore(f)
	if err != nil {
		return nil, err
	}
	return arr[:], nil
}

// EncodeScoreIndex builds the physical key for a sorted-set score-index
// record: S ∥ len(key) ∥ key ∥ version ∥ score_be ∥ member.
func EncodeScoreIndex(key []byte, version uint64, score float64, member []byte) ([]byte, error) {
	scoreBuf, err := EncodeScore(score)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 1+4+len(key)+8+8+len(member))
	buf = append(buf, TagScore)
	buf = putLenPrefixed(buf, key)
	var verBuf [8]byte
	binary.BigEndian.PutUint64(verBuf[:], version)
	buf = append(buf, verBuf[:]...)
	buf = append(buf, scoreBuf[:]...)
	buf = append(buf, member...)
	return buf, nil
}

// ScoreIndexVersionPrefix returns the prefix shared by every score-index
// entry of (key, version) — used to range-scan by rank or by score.
func ScoreIndexVersionPrefix(key []byte, version uint64) []byte {
	buf := make([]byte, 0, 1+4+len(key)+8)
	buf = append(buf, TagScore)
	buf = putLenPrefixed(buf, key)
	var verBuf [8]byte
	binary.BigEndian.PutUint64(verBuf[:], version)
	return append(buf, verBuf[:]...)
}

// ScoreIndexScoreBound returns the physical key for (key, version, score)
// with no member suffix, usable as an inclusive/exclusive range bound for
// ZRANGEBYSCORE-style scans.
func ScoreIndexScoreBound(key []byte, version uint64, score float64) ([]byte, error) {
	scoreBuf, err := EncodeScore(score)
	if err != nil {
		return nil, err
	}
	buf := ScoreIndexVersionPrefix(key, version)
	return append(buf, scoreBuf[:]...), nil
}

// DecodeScoreIndex splits an S-tagged physical key back into its logical
// key, version, score and member.
func DecodeScoreIndex(physKey []byte) (key []byte, version uint64, score float64, member []byte, err error) {
	if len(physKey) < 1 || physKey[0] != TagScore {
		return nil, 0, 0, nil, ErrDecodeRecord
	}
	key, rest, err := readLenPrefixed(physKey[1:])
	if err != nil {
		return nil, 0, 0, nil, err
	}
	if len(rest) < 16 {
		return nil, 0, 0, nil, ErrDecodeRecord
	}
	version = binary.BigEndian.Uint64(rest[:8])
	var scoreBuf [8]byte
	copy(scoreBuf[:], rest[8:16])
	score = DecodeScore(scoreBuf)
	member = rest[16:]
	return key, version, score, member, nil
}
