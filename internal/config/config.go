// Package config loads meshview's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SSH holds connection settings for reaching peers.
type SSH struct {
	User           string `yaml:"user,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	KeyPath        string `yaml:"key_path,omitempty"`
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`
}

// Config is the full meshview configuration.
type Config struct {
	// ListenAddr is where the bridge listens, e.g. "127.0.0.1:8632".
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// SocketPath is the mesh daemon's LocalAPI socket. Empty uses the
	// platform default.
	SocketPath string `yaml:"socket_path,omitempty"`

	// DBPath is the SQLite store for root overrides and the
	// connection log.
	DBPath string `yaml:"db_path,omitempty"`

	// DefaultRootDir is mounted for peers without a stored override.
	// Empty or "~" means the peer's home directory.
	DefaultRootDir string `yaml:"default_root_dir,omitempty"`

	// Hide lists glob patterns for directory entries to omit.
	Hide []string `yaml:"hide,omitempty"`

	// AdminConsoleURL is the machine admin page base URL.
	AdminConsoleURL string `yaml:"admin_console_url,omitempty"`

	SSH SSH `yaml:"ssh,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:8632",
		DBPath:     "meshview.db",
	}
}

// Load reads the configuration at path, layered over Default. A missing
// file is not an error; any other read or parse failure is. Environment
// variables MESHVIEW_ADDR and MESHVIEW_SOCKET override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("MESHVIEW_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MESHVIEW_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	return cfg, nil
}
