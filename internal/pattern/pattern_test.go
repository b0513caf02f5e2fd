package pattern_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blkcheck/internal/pattern"
)

func TestRandomSameSeedSameBytes(t *testing.T) {
	t.Parallel()

	a, err := pattern.New("random", 42)
	require.NoError(t, err)

	b, err := pattern.New("random", 42)
	require.NoError(t, err)

	buf1 := make([]byte, 65536)
	buf2 := make([]byte, 65536)

	a.Fill(buf1, 0)
	b.Fill(buf2, 0)

	require.True(t, bytes.Equal(buf1, buf2), "same seed must produce identical buffers")

	// Refilling the same generator is also stable.
	a.Fill(buf2, 0)
	require.True(t, bytes.Equal(buf1, buf2))
}

func TestRandomDifferentSeedsDiffer(t *testing.T) {
	t.Parallel()

	a, err := pattern.New("random", 1)
	require.NoError(t, err)

	b, err := pattern.New("random", 2)
	require.NoError(t, err)

	buf1 := make([]byte, 4096)
	buf2 := make([]byte, 4096)

	a.Fill(buf1, 0)
	b.Fill(buf2, 0)

	assert.False(t, bytes.Equal(buf1, buf2), "different seeds should diverge")
}

func TestRandomDifferentOffsetsDiffer(t *testing.T) {
	t.Parallel()

	g, err := pattern.New("random", 7)
	require.NoError(t, err)

	buf1 := make([]byte, 4096)
	buf2 := make([]byte, 4096)

	g.Fill(buf1, 0)
	g.Fill(buf2, 4096)

	assert.False(t, bytes.Equal(buf1, buf2), "distinct extents should get independent streams")
}

func TestRandomOddLength(t *testing.T) {
	t.Parallel()

	g, err := pattern.New("random", 3)
	require.NoError(t, err)

	buf1 := make([]byte, 13)
	buf2 := make([]byte, 13)

	g.Fill(buf1, 0)
	g.Fill(buf2, 0)

	assert.Equal(t, buf1, buf2)
}

func TestConstantPatterns(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		want byte
	}{
		{"zeros", 0x00},
		{"ones", 0xFF},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, err := pattern.New(tt.name, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.name, g.Name())

			buf := make([]byte, 1024)
			g.Fill(buf, 12345)

			for i, b := range buf {
				if b != tt.want {
					t.Fatalf("buf[%d]=0x%02x, want 0x%02x", i, b, tt.want)
				}
			}
		})
	}
}

func TestLBAStampsOffsets(t *testing.T) {
	t.Parallel()

	g, err := pattern.New("lba", 0)
	require.NoError(t, err)

	const offset = int64(1 << 20)

	buf := make([]byte, 64)
	g.Fill(buf, offset)

	for i := 0; i+8 <= len(buf); i += 8 {
		got := binary.LittleEndian.Uint64(buf[i : i+8])
		assert.Equal(t, uint64(offset)+uint64(i), got, "word at %d", i)
	}
}

func TestNewRejectsUnknownPattern(t *testing.T) {
	t.Parallel()

	_, err := pattern.New("bogus", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pattern")
}

func TestValid(t *testing.T) {
	t.Parallel()

	for _, name := range pattern.Names() {
		assert.True(t, pattern.Valid(name), name)
	}

	assert.False(t, pattern.Valid(""))
	assert.False(t, pattern.Valid("random "))
}

func TestNewSeedVaries(t *testing.T) {
	t.Parallel()

	// Not a randomness test, just a smoke check that we don't return a
	// constant.
	seen := map[uint64]bool{}
	for range 8 {
		seen[pattern.NewSeed()] = true
	}

	assert.Greater(t, len(seen), 1)
}
