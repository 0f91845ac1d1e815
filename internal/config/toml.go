// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server  ServerConfig  `toml:"server"`
	Tracker TrackerConfig `toml:"tracker"`
}

// ServerConfig maps HTTP API settings.
type ServerConfig struct {
	Addr           *string  `toml:"addr"`
	JWTSecret      *string  `toml:"jwt-secret"`
	GoogleClientID *string  `toml:"google-client-id"`
	AdminEmails    []string `toml:"admin-emails"`
	CORSOrigin     *string  `toml:"cors-origin"`
	LogLevel       *string  `toml:"log-level"`
	AuthRate       *float64 `toml:"auth-rate"`
}

// TrackerConfig maps local grid and stats settings.
type TrackerConfig struct {
	User            *string  `toml:"user"`
	Period          *string  `toml:"period"`
	Days            *int     `toml:"days"`
	TickProbability *float64 `toml:"tick-probability"`
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
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// IsAdminEmail reports whether email is listed in admin-emails.
func (c ServerConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(admin)) == email {
			return true
		}
	}
	return false
}
