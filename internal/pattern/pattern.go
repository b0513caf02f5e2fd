// Package pattern generates payload buffers for device exercise runs.
//
// Every generator is deterministic: the bytes produced depend only on the
// generator's parameters and the device offset the buffer is destined for.
// Reproducing a failed run therefore needs nothing beyond the seed and
// extent recorded in its report.
package pattern

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"strings"
)

// Generator fills payload buffers with a deterministic byte pattern.
type Generator interface {
	// Name returns the pattern name as accepted by [New].
	Name() string

	// Fill populates buf with the pattern for the extent starting at the
	// given device byte offset. Calling Fill twice with the same offset
	// and buffer length produces identical bytes.
	Fill(buf []byte, offset int64)
}

var errUnknownPattern = errors.New("unknown pattern")

// Names lists the accepted pattern names.
func Names() []string {
	return []string{"random", "zeros", "ones", "lba"}
}

// Valid reports whether name is an accepted pattern name.
func Valid(name string) bool {
	switch name {
	case "random", "zeros", "ones", "lba":
		return true
	}

	return false
}

// New returns the generator for name. The seed is only consulted by the
// random pattern; the others are fully determined by the device offset.
func New(name string, seed uint64) (Generator, error) {
	switch name {
	case "random":
		return &Random{seed: seed}, nil
	case "zeros":
		return fill{name: "zeros", b: 0x00}, nil
	case "ones":
		return fill{name: "ones", b: 0xFF}, nil
	case "lba":
		return lba{}, nil
	}

	return nil, fmt.Errorf("%w: %q (want one of %s)", errUnknownPattern, name, strings.Join(Names(), "|"))
}

// NewSeed draws a fresh random seed from the OS entropy source.
func NewSeed() uint64 {
	var b [8]byte

	// crypto/rand.Read never fails on supported platforms; it panics
	// internally if the kernel entropy source is unusable.
	_, _ = cryptorand.Read(b[:])

	return binary.LittleEndian.Uint64(b[:])
}

// Random produces seeded pseudorandom bytes. The PRNG stream is keyed by
// (seed, offset), so the same extent refills identically while distinct
// extents get independent streams.
type Random struct {
	seed uint64
}

// Seed returns the seed this generator was created with.
func (r *Random) Seed() uint64 { return r.seed }

func (r *Random) Name() string { return "random" }

func (r *Random) Fill(buf []byte, offset int64) {
	rng := mathrand.New(mathrand.NewPCG(r.seed, uint64(offset)))

	n := len(buf)
	i := 0

	for ; i+8 <= n; i += 8 {
		binary.LittleEndian.PutUint64(buf[i:i+8], rng.Uint64())
	}

	if i < n {
		v := rng.Uint64()
		for ; i < n; i++ {
			buf[i] = byte(v)
			v >>= 8
		}
	}
}

// fill is a constant-byte pattern (zeros, ones).
type fill struct {
	name string
	b    byte
}

func (f fill) Name() string { return f.name }

func (f fill) Fill(buf []byte, _ int64) {
	for i := range buf {
		buf[i] = f.b
	}
}

// lba stamps every 8-byte word with the device byte offset it is destined
// for. A misdirected or stale write then shows up as a wrong-address stamp
// rather than a generic byte difference.
type lba struct{}

func (lba) Name() string { return "lba" }

func (lba) Fill(buf []byte, offset int64) {
	n := len(buf)
	i := 0

	for ; i+8 <= n; i += 8 {
		binary.LittleEndian.PutUint64(buf[i:i+8], uint64(offset)+uint64(i))
	}

	// Tail shorter than a word falls back to the low bytes of the stamp.
	if i < n {
		var w [8]byte

		binary.LittleEndian.PutUint64(w[:], uint64(offset)+uint64(i))
		copy(buf[i:], w[:n-i])
	}
}
