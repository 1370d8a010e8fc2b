package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavioheleno/pidash/internal/render"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "GPIO25", cfg.DCPin)
	assert.Equal(t, time.Second, cfg.UpdateInterval)
	assert.Equal(t, 8*time.Second, cfg.PageDuration)
	assert.Equal(t, render.PageNames(), cfg.Pages)
	assert.True(t, cfg.BacklightOffOnExit)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
net_interface: wlan0
page_duration: 5s
pages:
  - system
  - docker
rotation: 180
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// Overridden values.
	assert.Equal(t, "wlan0", cfg.NetInterface)
	assert.Equal(t, 5*time.Second, cfg.PageDuration)
	assert.Equal(t, []string{"system", "docker"}, cfg.Pages)
	assert.Equal(t, 180, cfg.Rotation)

	// Untouched defaults survive.
	assert.Equal(t, "GPIO25", cfg.DCPin)
	assert.Equal(t, time.Second, cfg.UpdateInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "pages: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("no file anywhere returns defaults", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("HOME", t.TempDir())

		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("local file is picked up", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
			[]byte("net_interface: wlan0\n"), 0o644))
		chdir(t, dir)

		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, "wlan0", cfg.NetInterface)
	})

	t.Run("explicit missing path is an error", func(t *testing.T) {
		_, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing dc pin",
			mutate:  func(c *Config) { c.DCPin = "" },
			wantErr: "dc_pin",
		},
		{
			name:    "bad rotation",
			mutate:  func(c *Config) { c.Rotation = 45 },
			wantErr: "rotation",
		},
		{
			name:    "zero update interval",
			mutate:  func(c *Config) { c.UpdateInterval = 0 },
			wantErr: "update_interval",
		},
		{
			name:    "page duration below update interval",
			mutate:  func(c *Config) { c.PageDuration = 500 * time.Millisecond },
			wantErr: "page_duration",
		},
		{
			name:    "empty pages",
			mutate:  func(c *Config) { c.Pages = nil },
			wantErr: "pages",
		},
		{
			name:    "unknown page name",
			mutate:  func(c *Config) { c.Pages = []string{"system", "bogus"} },
			wantErr: "bogus",
		},
		{
			name:    "history too small",
			mutate:  func(c *Config) { c.HistorySize = 1 },
			wantErr: "history_size",
		},
		{
			name:    "zero write failure tolerance",
			mutate:  func(c *Config) { c.MaxWriteFailures = 0 },
			wantErr: "max_write_failures",
		},
		{
			name:    "zero command timeout",
			mutate:  func(c *Config) { c.CommandTimeout = 0 },
			wantErr: "command_timeout",
		},
		{
			name:    "missing interface",
			mutate:  func(c *Config) { c.NetInterface = "" },
			wantErr: "net_interface",
		},
		{
			name:    "missing disk path",
			mutate:  func(c *Config) { c.DiskPath = "" },
			wantErr: "disk_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPageList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pages = []string{"docker", "system"}

	pages, err := cfg.PageList()
	require.NoError(t, err)
	assert.Equal(t, []render.Page{render.PageDocker, render.PageSystem}, pages)
}

func TestFindExplicit(t *testing.T) {
	path := writeConfig(t, "rotation: 90\n")

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}
