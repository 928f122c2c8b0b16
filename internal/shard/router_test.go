package shard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfDocWrapsAround(t *testing.T) {
	require.Equal(t, 1, OfDoc(0, 4))
	require.Equal(t, 2, OfDoc(1, 4))
	require.Equal(t, 4, OfDoc(3, 4))
	require.Equal(t, 1, OfDoc(4, 4))
}

func TestOfHashIsStableAndInRange(t *testing.T) {
	bins := 16

	for _, h := range []string{
		"0000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		"a1b2c3d4e5f60718293a4b5c6d7e8f90112233445566778899aabbccddeeff",
	} {
		bin := OfHash(h, bins)

		require.GreaterOrEqual(t, bin, 1)
		require.LessOrEqual(t, bin, bins)
		require.Equal(t, bin, OfHash(h, bins))
	}
}

func TestOfHashInvalidDigestFallsBackToBinOne(t *testing.T) {
	require.Equal(t, 1, OfHash("not-hex", 8))
}
