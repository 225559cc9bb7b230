// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Connection ConnectionConfig `toml:"connection"`
	Behavior   BehaviorConfig   `toml:"behavior"`
	Display    DisplayConfig    `toml:"display"`
}

// ConnectionConfig maps serial link settings. Nil fields fall back to
// flag or built-in defaults.
type ConnectionConfig struct {
	Port          *string `toml:"port"`
	BaudRate      *int    `toml:"baud-rate"`
	AutoReconnect *bool   `toml:"auto-reconnect"`
}

// BehaviorConfig maps cadence and idle behavior settings.
type BehaviorConfig struct {
	IdleTimeoutMs       *int     `toml:"idle-timeout-ms"`
	SleepTimeoutMinutes *int     `toml:"sleep-timeout-minutes"`
	Sensitivity         *float64 `toml:"sensitivity"`
}

// DisplayConfig maps the device display toggles pushed on connect.
type DisplayConfig struct {
	ShowCPU       *bool `toml:"show-cpu"`
	ShowRAM       *bool `toml:"show-ram"`
	ShowWPM       *bool `toml:"show-wpm"`
	ShowTime      *bool `toml:"show-time"`
	TimeFormat24h *bool `toml:"time-format-24h"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
