package id

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXorSelfIsZero(t *testing.T) {
	var a ID
	rand.Read(a[:])
	assert.Equal(t, Zero, Xor(a, a))
}

func TestCommonPrefixLen(t *testing.T) {
	a := ID{0b10110000}
	b := ID{0b10100000}
	assert.Equal(t, 3, CommonPrefixLen(a, b))

	assert.Equal(t, Width, CommonPrefixLen(a, a))
}

func TestMatchesPrefix(t *testing.T) {
	local := ID{0x80} // 1000_0000...
	assert.True(t, MatchesPrefix(local, local, 1))

	other := ID{0x40} // 0100_0000...
	assert.False(t, MatchesPrefix(other, local, 1))
	assert.True(t, MatchesPrefix(other, local, 0))
}

func TestLessOrdersByMagnitude(t *testing.T) {
	small := ID{0x00, 0x01}
	big := ID{0x00, 0x02}
	assert.True(t, small.Less(big))
	assert.False(t, big.Less(small))
}

func TestRandomWithPrefixPreservesCutoffBits(t *testing.T) {
	prefix := ID{0b11010000}
	out, err := RandomWithPrefix(prefix, 4, rand.Read)
	require.NoError(t, err)
	assert.True(t, MatchesPrefix(out, prefix, 4))
}

func TestFromBytesRejectsBadLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestStringRoundTripsThroughBase58(t *testing.T) {
	var a ID
	rand.Read(a[:])
	s := a.String()
	assert.NotEmpty(t, s)

	back, err := FromString(s)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestFromStringRejectsGarbage(t *testing.T) {
	_, err := FromString("not-valid-base58-!!!")
	assert.Error(t, err)
}
