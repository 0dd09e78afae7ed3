package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSafeWriteFileOverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a_results.json")

	require.NoError(t, SafeWriteFile(path, []byte("first")))
	require.NoError(t, SafeWriteFile(path, []byte("second")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"data/sales.csv":      "sales",
		"/tmp/SALES.CSV":      "SALES",
		"archive.tar.csv":     "archive.tar",
		"noext":               "noext",
		"./uploads/x y z.csv": "x y z",
		"dir/.csv":            ".csv",
		"..csv":               "..csv",
		".hidden.csv":         ".hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, Stem(in), in)
	}
}
