// Package verify compares written and read-back payloads.
package verify

import (
	"encoding/hex"
	"errors"
	"fmt"

	sha256 "github.com/minio/sha256-simd"
)

// ErrLengthMismatch is returned when the two buffers cannot be compared.
var ErrLengthMismatch = errors.New("buffer lengths differ")

// Outcome is the result class of a comparison.
type Outcome int

const (
	// Pass means every byte matched.
	Pass Outcome = iota
	// Mismatch means at least one byte differed.
	Mismatch
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Mismatch:
		return "mismatch"
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result reports the outcome of one comparison.
type Result struct {
	Outcome Outcome

	// Offset is the index of the first differing byte, counted from the
	// start of the buffers. -1 on Pass.
	Offset int64

	// Want and Got hold the differing byte values on Mismatch.
	Want byte
	Got  byte
}

// Compare scans want and got left to right and reports the first index at
// which they differ. Single O(N) pass; the reported offset is always the
// leftmost divergence.
func Compare(want, got []byte) (Result, error) {
	if len(want) != len(got) {
		return Result{}, fmt.Errorf("%w: want %d bytes, got %d", ErrLengthMismatch, len(want), len(got))
	}

	for i := range want {
		if want[i] != got[i] {
			return Result{
				Outcome: Mismatch,
				Offset:  int64(i),
				Want:    want[i],
				Got:     got[i],
			}, nil
		}
	}

	return Result{Outcome: Pass, Offset: -1}, nil
}

// Digest returns the hex SHA-256 of buf. Reports carry the digest of both
// payloads so runs can be compared without keeping the data around.
func Digest(buf []byte) string {
	sum := sha256.Sum256(buf)

	return hex.EncodeToString(sum[:])
}
