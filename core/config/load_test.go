package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()

	cfg, err := Load(fsys, "/etc/rmsh")
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.HistorySize)
	assert.Equal(t, "$ ", cfg.Prompt)
}

func TestLoadReadsOverrides(t *testing.T) {
	fsys := afero.NewMemMapFs()
	contents := []byte("prompt: \"% \"\nroot_prompt: \"# \"\nhistory_size: 64\nssh:\n  port: 22\n  host_key: host_key\n")
	require.NoError(t, afero.WriteFile(fsys, "/etc/rmsh/config.yaml", contents, 0644))

	cfg, err := Load(fsys, "/etc/rmsh")
	require.NoError(t, err)
	assert.Equal(t, "% ", cfg.Prompt)
	assert.Equal(t, 64, cfg.HistorySize)
	assert.Equal(t, 22, cfg.SSH.Port)
}

func TestLoadAcceptsConfigFilePath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/rmsh/config.yaml", []byte("prompt: \"> \"\n"), 0644))

	cfg, err := Load(fsys, "/etc/rmsh/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "> ", cfg.Prompt)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/rmsh/config.yaml", []byte("promt: typo\n"), 0644))

	_, err := Load(fsys, "/etc/rmsh")
	assert.Error(t, err)
}
