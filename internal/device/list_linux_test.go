//go:build linux

package device_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blkcheck/internal/device"
)

func fakeSysBlock(t *testing.T, devs map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, sectors := range devs {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "size"), []byte(sectors+"\n"), 0o644))
	}

	return root
}

func TestListReadsSysfs(t *testing.T) {
	t.Parallel()

	root := fakeSysBlock(t, map[string]string{
		"nvme0n1": "7814037168",
		"sda":     "1953525168",
	})

	devs, err := device.List(root)
	require.NoError(t, err)
	require.Len(t, devs, 2)

	byName := map[string]device.Info{}
	for _, d := range devs {
		byName[d.Name] = d
	}

	assert.Equal(t, int64(7814037168)*512, byName["nvme0n1"].Size)
	assert.Equal(t, "/dev/nvme0n1", byName["nvme0n1"].Path)
	assert.Equal(t, int64(1953525168)*512, byName["sda"].Size)
}

func TestListSkipsLoopAndRam(t *testing.T) {
	t.Parallel()

	root := fakeSysBlock(t, map[string]string{
		"loop0": "1024",
		"ram0":  "1024",
		"vda":   "2048",
	})

	devs, err := device.List(root)
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "vda", devs[0].Name)
}

func TestListSkipsUnreadableEntries(t *testing.T) {
	t.Parallel()

	root := fakeSysBlock(t, map[string]string{"sdb": "4096"})

	// Entry without a size file is skipped, not fatal.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sdc"), 0o755))

	devs, err := device.List(root)
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "sdb", devs[0].Name)
}

func TestListMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := device.List(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
