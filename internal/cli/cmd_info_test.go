package cli

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoRegularFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	img := h.diskImage("disk.img", 128<<10)

	stdout, _, code := h.run("info", img)

	assert.Equal(t, ExitPass, code)
	assert.Contains(t, stdout, img+":")
	assert.Contains(t, stdout, fmt.Sprintf("size:        %d bytes", 128<<10))
	assert.Contains(t, stdout, "sector size:")
}

func TestInfoRequiresDevice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, stderr, code := h.run("info")

	assert.Equal(t, ExitIOError, code)
	assert.Contains(t, stderr, "device path is required")
}

func TestInfoNonexistent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, stderr, code := h.run("info", filepath.Join(h.workDir, "missing"))

	assert.Equal(t, ExitIOError, code)
	assert.Contains(t, stderr, "error:")
}
