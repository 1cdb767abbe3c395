package os_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	tmos "github.com/decentrust/decentrust/libs/os"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.False(t, tmos.FileExists(dir))

	require.NoError(t, tmos.EnsureDir(dir, 0700))
	require.True(t, tmos.FileExists(dir))

	// existing directories are left alone
	require.NoError(t, tmos.EnsureDir(dir, 0700))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
	require.Error(t, tmos.EnsureDir(filepath.Join(file, "sub"), 0700))
}
