package device

import (
	"errors"
	"fmt"
	"io"
)

// WriteFull writes all of buf at off, looping over partial progress. A
// one-shot syscall is not a safe contract against block devices, so a
// short count without an error is retried; zero progress twice in a row
// becomes [ErrShortWrite].
func WriteFull(h Handle, buf []byte, off int64) (int, error) {
	done := 0
	stalled := false

	for done < len(buf) {
		n, err := h.WriteAt(buf[done:], off+int64(done))
		done += n

		if err != nil {
			return done, fmt.Errorf("write %d bytes at %d: %w", len(buf), off, err)
		}

		if n == 0 {
			if stalled {
				return done, fmt.Errorf("%w: %d of %d bytes at %d", ErrShortWrite, done, len(buf), off)
			}

			stalled = true

			continue
		}

		stalled = false
	}

	return done, nil
}

// ReadFull reads len(buf) bytes at off, looping over partial progress.
// Hitting end of device before the buffer is full is [ErrShortRead].
func ReadFull(h Handle, buf []byte, off int64) (int, error) {
	done := 0
	stalled := false

	for done < len(buf) {
		n, err := h.ReadAt(buf[done:], off+int64(done))
		done += n

		if errors.Is(err, io.EOF) {
			if done == len(buf) {
				break
			}

			return done, fmt.Errorf("%w: %d of %d bytes at %d: %w", ErrShortRead, done, len(buf), off, err)
		}

		if err != nil {
			return done, fmt.Errorf("read %d bytes at %d: %w", len(buf), off, err)
		}

		if n == 0 {
			if stalled {
				return done, fmt.Errorf("%w: %d of %d bytes at %d", ErrShortRead, done, len(buf), off)
			}

			stalled = true

			continue
		}

		stalled = false
	}

	return done, nil
}
