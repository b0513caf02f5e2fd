package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// harness runs the CLI against a temp working directory with a clean
// environment, capturing both output streams and the exit code.
type harness struct {
	t       *testing.T
	workDir string
	env     map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return &harness{
		t:       t,
		workDir: t.TempDir(),
		env:     map[string]string{"HOME": t.TempDir()},
	}
}

func (h *harness) run(args ...string) (stdout, stderr string, code int) {
	h.t.Helper()

	var out, errOut strings.Builder

	full := append([]string{"blkcheck", "-C", h.workDir}, args...)
	code = Run(strings.NewReader(""), &out, &errOut, full, h.env, nil)

	return out.String(), errOut.String(), code
}

// diskImage creates a sparse file of the given size under the work dir,
// standing in for a device node.
func (h *harness) diskImage(name string, size int64) string {
	h.t.Helper()

	path := filepath.Join(h.workDir, name)

	f, err := os.Create(path)
	require.NoError(h.t, err)
	require.NoError(h.t, f.Truncate(size))
	require.NoError(h.t, f.Close())

	return path
}

func (h *harness) writeConfig(name, content string) string {
	h.t.Helper()

	path := filepath.Join(h.workDir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))

	return path
}
