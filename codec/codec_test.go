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
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeSubRoundTrip(t *testing.T) {
	key := []byte("myhash")
	suffix := []byte("field1")

	phys := EncodeSub(key, 42, SubkeyKindHash, suffix)

	gotKey, gotVersion, gotKind, gotSuffix, err := DecodeSub(phys)
	assert.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, uint64(42), gotVersion)
	assert.Equal(t, SubkeyKindHash, gotKind)
	assert.Equal(t, suffix, gotSuffix)
}

func TestEncodeDecodeScoreIndexRoundTrip(t *testing.T) {
	key := []byte("myzset")
	member := []byte("alice")

	phys, err := EncodeScoreIndex(key, 7, 3.5, member)
	assert.NoError(t, err)

	gotKey, gotVersion, gotScore, gotMember, err := DecodeScoreIndex(phys)
	assert.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, uint64(7), gotVersion)
	assert.Equal(t, 3.5, gotScore)
	assert.Equal(t, member, gotMember)
}

func TestEncodeDecodeExpireIndexRoundTrip(t *testing.T) {
	key := []byte("k")
	ts, gotKey, err := (func() (int64, []byte, error) {
		phys := EncodeExpireIndex(1000, key)
		return DecodeExpireIndex(phys)
	})()
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), ts)
	assert.Equal(t, key, gotKey)
}

func TestEncodeScoreOrdering(t *testing.T) {
	scores := []float64{
		math.Inf(-1), -100.5, -1, -0.0001, 0, 0.0001, 1, 100.5, math.Inf(1),
	}

	var encoded [][8]byte
	for _, s := range scores {
		b, err := EncodeScore(s)
		assert.NoError(t, err)
		encoded = append(encoded, b)
	}

	for i := 1; i < len(encoded); i++ {
		prev, cur := encoded[i-1][:], encoded[i][:]
		assert.True(t, bytes.Compare(prev, cur) < 0,
			"expected encode(%v) < encode(%v) lexicographically", scores[i-1], scores[i])
	}
}

func TestEncodeScoreRejectsNaN(t *testing.T) {
	_, err := EncodeScore(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestEncodeScoreRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -0.0, 1, -1, 3.1415, -3.1415, math.MaxFloat64, -math.MaxFloat64} {
		enc, err := EncodeScore(f)
		assert.NoError(t, err)
		assert.Equal(t, f, DecodeScore(enc))
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := &Metadata{DataType: TypeHash, ExpireMs: 123456, Version: 9, Size: 3}
	decoded, err := DecodeMetadata(m.Encode())
	assert.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestMetadataRoundTripList(t *testing.T) {
	m := &Metadata{DataType: TypeList, ExpireMs: 0, Version: 1, Size: 2, Head: InitialListMark - 1, Tail: InitialListMark + 1}
	decoded, err := DecodeMetadata(m.Encode())
	assert.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestMetadataRoundTripString(t *testing.T) {
	m := &Metadata{DataType: TypeString, ExpireMs: 0, Version: 1, Value: []byte("hello")}
	decoded, err := DecodeMetadata(m.Encode())
	assert.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestDecodeMetadataRejectsShortBuffer(t *testing.T) {
	_, err := DecodeMetadata([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrDecodeRecord)
}

func TestSubPrefixMatchesEncodeSub(t *testing.T) {
	key := []byte("k")
	prefix := SubPrefix(key, 5, SubkeyKindSet)
	phys := EncodeSub(key, 5, SubkeyKindSet, []byte("member"))
	assert.True(t, bytes.HasPrefix(phys, prefix))
}
