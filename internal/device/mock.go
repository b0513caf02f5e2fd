package device

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Mock is an in-memory [Handle] with injectable failure points. It stands
// in for real hardware in tests: every error path of the exercise sequence
// can be forced, and the open/close lifecycle is observable.
type Mock struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	sector int

	closed     bool
	closeCalls int

	// Failure injection. A non-nil error is returned by the matching
	// operation instead of performing it.
	FailRead  error
	FailWrite error
	FailSeek  error
	FailSync  error

	// MaxTransfer caps the byte count of a single ReadAt/WriteAt,
	// simulating partial transfers. 0 = unlimited.
	MaxTransfer int

	// FlipOffset marks a byte whose low bit is flipped on read-back,
	// simulating silent medium corruption. -1 = healthy.
	FlipOffset int64
}

// NewMock returns a healthy in-memory device of the given size.
func NewMock(size int) *Mock {
	return &Mock{
		data:       make([]byte, size),
		sector:     DefaultSectorSize,
		FlipOffset: -1,
	}
}

// Bytes returns the current device content. Test-only accessor.
func (m *Mock) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]byte, len(m.data))
	copy(out, m.data)

	return out
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// CloseCalls returns how many times Close was called.
func (m *Mock) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeCalls
}

func (m *Mock) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, os.ErrClosed
	}

	if m.FailRead != nil {
		return 0, m.FailRead
	}

	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	atEnd := n < len(p)

	// A MaxTransfer truncation is a partial transfer, not end of device.
	if m.MaxTransfer > 0 && n > m.MaxTransfer {
		n = m.MaxTransfer
		atEnd = false
	}

	if m.FlipOffset >= off && m.FlipOffset < off+int64(n) {
		p[m.FlipOffset-off] ^= 0x01
	}

	if atEnd {
		return n, io.EOF
	}

	return n, nil
}

func (m *Mock) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, os.ErrClosed
	}

	if m.FailWrite != nil {
		return 0, m.FailWrite
	}

	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("%w: write at %d, size %d", ErrInvalidOffset, off, len(m.data))
	}

	src := p
	if m.MaxTransfer > 0 && len(src) > m.MaxTransfer {
		src = src[:m.MaxTransfer]
	}

	if off+int64(len(src)) > int64(len(m.data)) {
		src = src[:int64(len(m.data))-off]
	}

	n := copy(m.data[off:], src)

	return n, nil
}

func (m *Mock) Seek(offset int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, os.ErrClosed
	}

	if m.FailSeek != nil {
		return 0, m.FailSeek
	}

	var target int64

	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	if target < 0 || target > int64(len(m.data)) {
		return 0, fmt.Errorf("%w: seek to %d, device size %d", ErrInvalidOffset, target, len(m.data))
	}

	m.pos = target

	return target, nil
}

func (m *Mock) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSync != nil {
		return m.FailSync
	}

	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCalls++

	if m.closed {
		return os.ErrClosed
	}

	m.closed = true

	return nil
}

func (m *Mock) Size() int64 { return int64(len(m.data)) }

func (m *Mock) SectorSize() int { return m.sector }

func (m *Mock) Path() string { return "mock" }

var _ Handle = (*Mock)(nil)
