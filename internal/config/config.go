// Package config loads and validates the dashboard configuration. The file
// is optional: with no config present every field falls back to defaults
// matching the common Waveshare 1.69" wiring.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/flavioheleno/pidash/internal/render"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".pidash.yaml"
	// GlobalConfigDir is the directory for global config, under $HOME.
	GlobalConfigDir = ".config/pidash"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Config is the full dashboard configuration.
type Config struct {
	// SPI is the SPI port name (e.g. "SPI0.0"). Empty selects the first
	// available port.
	SPI string `mapstructure:"spi"`
	// DCPin is the data/command GPIO pin name.
	DCPin string `mapstructure:"dc_pin"`
	// RSTPin is the hardware reset GPIO pin name. Empty skips the reset
	// pulse.
	RSTPin string `mapstructure:"rst_pin"`
	// BLPin is the backlight GPIO pin name. Empty disables backlight
	// control.
	BLPin string `mapstructure:"bl_pin"`
	// Rotation is the panel orientation in degrees: 0, 90, 180 or 270.
	Rotation int `mapstructure:"rotation"`

	// UpdateInterval is the time between frames.
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	// PageDuration is how long each page stays up.
	PageDuration time.Duration `mapstructure:"page_duration"`
	// Pages is the rotation order by name. Empty means all pages.
	Pages []string `mapstructure:"pages"`
	// HistorySize bounds the sparkline window.
	HistorySize int `mapstructure:"history_size"`
	// MaxWriteFailures is the consecutive failed-frame tolerance before
	// the dashboard exits.
	MaxWriteFailures int `mapstructure:"max_write_failures"`

	// NetInterface is the interface to report throughput for.
	NetInterface string `mapstructure:"net_interface"`
	// DiskPath is the filesystem shown as primary storage.
	DiskPath string `mapstructure:"disk_path"`
	// NASPath is the mount point shown as NAS storage. Empty disables it.
	NASPath string `mapstructure:"nas_path"`
	// CommandTimeout bounds external reads (Docker daemon, vcgencmd).
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// BacklightOffOnExit switches the backlight off when the dashboard
	// shuts down.
	BacklightOffOnExit bool `mapstructure:"backlight_off_on_exit"`
}

// DefaultConfig returns the defaults for the common wiring: DC on GPIO25,
// RST on GPIO27, backlight on GPIO18.
func DefaultConfig() *Config {
	return &Config{
		DCPin:              "GPIO25",
		RSTPin:             "GPIO27",
		BLPin:              "GPIO18",
		Rotation:           0,
		UpdateInterval:     time.Second,
		PageDuration:       8 * time.Second,
		Pages:              render.PageNames(),
		HistorySize:        20,
		MaxWriteFailures:   5,
		NetInterface:       "eth0",
		DiskPath:           "/",
		NASPath:            "/mnt/nas",
		CommandTimeout:     2 * time.Second,
		BacklightOffOnExit: true,
	}
}

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return parseConfig(v, path)
}

// Find locates the config file:
//  1. Explicit path (from --config flag)
//  2. .pidash.yaml in the current directory
//  3. ~/.config/pidash/config.yaml
//
// Returns an empty path when no file exists, which is not an error.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults when
// no file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// parseConfig merges the file over the defaults.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and returns a diagnostic naming the offending
// value. Configuration errors are fatal at startup.
func (c *Config) Validate() error {
	if c.DCPin == "" {
		return fmt.Errorf("dc_pin is required (the display cannot distinguish commands from data without it)")
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("rotation %d is invalid: must be 0, 90, 180 or 270", c.Rotation)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval %v is invalid: must be positive", c.UpdateInterval)
	}
	if c.PageDuration < c.UpdateInterval {
		return fmt.Errorf("page_duration %v is shorter than update_interval %v: every page needs at least one frame",
			c.PageDuration, c.UpdateInterval)
	}
	if len(c.Pages) == 0 {
		return fmt.Errorf("pages is empty: list at least one of %v", render.PageNames())
	}
	if _, err := c.PageList(); err != nil {
		return err
	}
	if c.HistorySize < 2 {
		return fmt.Errorf("history_size %d is invalid: the sparkline needs at least 2 points", c.HistorySize)
	}
	if c.MaxWriteFailures < 1 {
		return fmt.Errorf("max_write_failures %d is invalid: must be at least 1", c.MaxWriteFailures)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout %v is invalid: must be positive", c.CommandTimeout)
	}
	if c.NetInterface == "" {
		return fmt.Errorf("net_interface is required (e.g. eth0 or wlan0)")
	}
	if c.DiskPath == "" {
		return fmt.Errorf("disk_path is required (e.g. /)")
	}
	return nil
}

// PageList resolves the configured page names.
func (c *Config) PageList() ([]render.Page, error) {
	pages := make([]render.Page, 0, len(c.Pages))
	for _, name := range c.Pages {
		p, err := render.ParsePage(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}
