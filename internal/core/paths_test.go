package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	defaultPaths = nil
	defer func() { defaultPaths = nil }()

	assert.Equal(t, home, HomeDir())
	assert.Equal(t, filepath.Join(home, ".local", "share", "resmon"), DataDir())
	assert.Equal(t, filepath.Join(DataDir(), "resmon.log"), LogFile())
	assert.Equal(t, filepath.Join(home, ".config", "resmon", "config.yaml"), ConfigFile())

	info, err := os.Stat(DataDir())
	require.NoError(t, err, "data dir should be created")
	assert.True(t, info.IsDir())
}
