package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Credentials.Dropbox.AuthURL == "" {
			t.Error("expected default auth URL")
		}
		if config.Credentials.Dropbox.TokenURL == "" {
			t.Error("expected default token URL")
		}
		if config.Storage.Path == "" {
			t.Error("expected default storage path")
		}
		if config.Server.Port == 0 {
			t.Error("expected default server port")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("parses a valid file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := `
[credentials.dropbox]
app_key = "abc123"
redirect_uri = "http://localhost:3000/callback"

[storage]
path = "test.db"

[sync]
enabled = true
auto_sync = true

[server]
host = "localhost"
port = 3000
`
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}

			if config.Credentials.Dropbox.AppKey != "abc123" {
				t.Errorf("expected app key abc123, got %s", config.Credentials.Dropbox.AppKey)
			}
			if !config.Sync.Enabled || !config.Sync.AutoSync {
				t.Error("expected sync switches enabled")
			}
			if config.Server.Port != 3000 {
				t.Errorf("expected port 3000, got %d", config.Server.Port)
			}
		})

		t.Run("fails on missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("fails on malformed TOML", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			os.WriteFile(path, []byte("[credentials\nnot toml"), 0644)

			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error for malformed TOML")
			}
		})
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		t.Run("writes the embedded template", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := CreateConfigFile(path); err != nil {
				t.Fatalf("CreateConfigFile failed: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("created config does not parse: %v", err)
			}
			if config.Credentials.Dropbox.AuthURL == "" {
				t.Error("expected template to carry default endpoints")
			}
		})

		t.Run("refuses to overwrite an existing file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("existing"), 0644)

			if err := CreateConfigFile(path); err == nil {
				t.Error("expected error when file exists")
			}
		})
	})
}
