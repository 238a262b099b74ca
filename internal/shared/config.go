package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Storage     StorageConfig     `toml:"storage"`
	Sync        SyncConfig        `toml:"sync"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains provider credentials.
type CredentialsConfig struct {
	Dropbox DropboxConfig `toml:"dropbox"`
}

// DropboxConfig contains Dropbox app credentials and endpoint overrides.
//
// PKCE flows need only the app key; there is no client secret. The endpoint
// fields default to the public Dropbox API and exist so tests can point the
// client at a local server.
type DropboxConfig struct {
	AppKey      string `toml:"app_key"`
	RedirectURI string `toml:"redirect_uri"`
	AuthURL     string `toml:"auth_url"`
	TokenURL    string `toml:"token_url"`
	APIURL      string `toml:"api_url"`
	ContentURL  string `toml:"content_url"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	Path string `toml:"path"`
}

// SyncConfig contains the initial playlist sync settings.
//
// These seed the persisted settings on first run; afterwards the persisted
// values win.
type SyncConfig struct {
	Enabled  bool `toml:"enabled"`
	AutoSync bool `toml:"auto_sync"`
}

// ServerConfig contains the OAuth loopback callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
