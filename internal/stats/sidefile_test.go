package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueSideFilePath_returnsBaseWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "blockstats.bin")

	got, err := UniqueSideFilePath(base)
	require.NoError(t, err)
	require.Equal(t, base, got)
}

func TestUniqueSideFilePath_appendsSuffixWhenPresent(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "blockstats.bin")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0o644))

	got, err := UniqueSideFilePath(base)
	require.NoError(t, err)
	require.NotEqual(t, base, got)
	require.Contains(t, got, base+".")
}
