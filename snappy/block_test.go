package snappy_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/netwrix/iworkcore/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("Hello, World!"),
		[]byte(""),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		bytes.Repeat([]byte("abcabcabcabc"), 200),
		[]byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again"),
	}
	for _, c := range cases {
		compressed := snappy.Compress(c)
		got, err := snappy.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestCompressDecompressRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		n := rng.Intn(4096)
		buf := make([]byte, n)
		rng.Read(buf)
		compressed := snappy.Compress(buf)
		got, err := snappy.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, buf, got)
	}
}

func TestValidate(t *testing.T) {
	c := snappy.Compress([]byte("Hello, World!"))
	assert.True(t, snappy.Validate(c))
	assert.False(t, snappy.Validate([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
}

func TestUncompressedLen(t *testing.T) {
	src := []byte("Hello, World!")
	c := snappy.Compress(src)
	n, err := snappy.UncompressedLen(c)
	require.NoError(t, err)
	assert.Equal(t, len(src), n)
}

func TestEmptyInputProducesOneByteBlock(t *testing.T) {
	c := snappy.Compress(nil)
	require.Len(t, c, 1)
	assert.Equal(t, byte(0x00), c[0])
	got, err := snappy.Decompress(c)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecompressZeroCopyOffsetIsError(t *testing.T) {
	// varint length=1, then a 1-byte-offset copy tag with offset 0:
	// tag = (length-4)<<2 | 0x01, with length=4 -> tag = 0x01, offset byte 0x00.
	buf := []byte{0x01, 0x01, 0x00}
	_, err := snappy.Decompress(buf)
	require.Error(t, err)
	var decErr *snappy.DecompressionFailedError
	require.ErrorAs(t, err, &decErr)
}

func TestDecompressLengthMismatchIsError(t *testing.T) {
	// Declares uncompressed length 5 but only emits a 3-byte literal.
	buf := []byte{0x05, byte((3-1)<<2) | 0x00, 'a', 'b', 'c'}
	_, err := snappy.Decompress(buf)
	require.Error(t, err)
}

func TestMaxCompressedLen(t *testing.T) {
	assert.Equal(t, 32, snappy.MaxCompressedLen(0))
	assert.Greater(t, snappy.MaxCompressedLen(1000), 1000)
}
