package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCreatesDirectoryAndLoads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "models")
	in := StandardScaler{Mean: []float64{1, 2}, Scale: []float64{0.5, 1}}

	require.NoError(t, Save(dir, "scaler", &in))
	assert.FileExists(t, ArtifactPath(dir, "scaler"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	var out StandardScaler
	require.NoError(t, Load(dir, "scaler", &out))
	assert.Equal(t, in, out)
}

func TestLoadMissingArtifact(t *testing.T) {
	var out StandardScaler
	err := Load(t.TempDir(), "scaler", &out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(ArtifactPath(dir, "scaler"), []byte("{not json"), 0o644))

	var out StandardScaler
	assert.Error(t, Load(dir, "scaler", &out))
}
