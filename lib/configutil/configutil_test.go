package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string  `json:"name"`
	Workers int     `json:"workers"`
	Scale   float64 `json:"scale"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keiba.json5")

	defaults := testConfig{Name: "default", Workers: 4, Scale: 0.2}

	_, err := ReadConfig(path, defaults)
	require.True(t, os.IsNotExist(err))

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		name: "base",
		workers: 8,
	}`), 0666)
	require.NoError(t, err)

	cfg, err := ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Workers: 8, Scale: 0.2}, cfg)

	err = os.WriteFile(filepath.Join(dir, "keiba.local.json5"), []byte(`{workers: 2}`), 0666)
	require.NoError(t, err)

	cfg, err = ReadConfig(path, defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Workers: 2, Scale: 0.2}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{name: `), 0666))

	_, err := ReadConfig(path, testConfig{})
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
