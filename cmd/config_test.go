package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	out, err := runCmd(t, "config", "set", "label_column", "converted")
	require.NoError(t, err)
	assert.Equal(t, "Saved config\n", out)

	_, err = os.Stat(filepath.Join(home, ".csvinsight", "config.yaml"))
	require.NoError(t, err)

	_, err = runCmd(t, "config", "set", "max_iter", "250")
	require.NoError(t, err)

	out, err = runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "label_column: converted\n")
	assert.Contains(t, out, "max_iter: 250\n")
	assert.Contains(t, out, "output_dir: output\n")
}

func TestConfigSetRejectsBadValues(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{"config", "set", "nope", "1"},
		{"config", "set", "max_iter", "-3"},
		{"config", "set", "log_format", "xml"},
		{"config", "set", "delimiter", "ab"},
	} {
		_, err := runCmd(t, args...)
		assert.Error(t, err, args)
	}
}

func TestConfigFlagOverridesFile(t *testing.T) {
	home := isolate(t)
	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("label_column: won\noutput_dir: fromfile\n"), 0o644))

	out, err := runCmd(t, "--config", cfgPath, "--output-dir", "fromflag", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "label_column: won\n")
	assert.Contains(t, out, "output_dir: fromflag\n")
}
