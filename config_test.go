package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	cfg := defaultConfig()

	if cfg.MaxMessages != 500 {
		t.Errorf("MaxMessages = %d, want 500", cfg.MaxMessages)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Storage.Key != storageKey {
		t.Errorf("Storage.Key = %q, want %q", cfg.Storage.Key, storageKey)
	}
	if cfg.Storage.Dir != "/xdg/formapp" {
		t.Errorf("Storage.Dir = %q, want /xdg/formapp", cfg.Storage.Dir)
	}
	if cfg.LogDir != "/xdg/formapp/logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if !cfg.Bot.BotEnabled() {
		t.Error("bot should be enabled by default")
	}
	if !cfg.LoggingEnabled() {
		t.Error("logging should be enabled by default")
	}
	if cfg.Bot.APIKeyEnv != "API_KEY" {
		t.Errorf("Bot.APIKeyEnv = %q, want API_KEY", cfg.Bot.APIKeyEnv)
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("flag takes priority", func(t *testing.T) {
		got := configPath("/my/flag/path.toml")
		if got != "/my/flag/path.toml" {
			t.Errorf("configPath with flag = %q, want %q", got, "/my/flag/path.toml")
		}
	})

	t.Run("env var when no flag", func(t *testing.T) {
		t.Setenv("FORMAPP_CONFIG", "/env/path.toml")
		got := configPath("")
		if got != "/env/path.toml" {
			t.Errorf("configPath with env = %q, want %q", got, "/env/path.toml")
		}
	})

	t.Run("default when no flag or env", func(t *testing.T) {
		t.Setenv("FORMAPP_CONFIG", "")
		got := configPath("")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Fatalf("os.UserHomeDir() failed: %v", err)
		}
		want := filepath.Join(home, ".config", "formapp", "config.toml")
		if got != want {
			t.Errorf("configPath default = %q, want %q", got, want)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadConfig(filepath.Join(dir, "nonexistent.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxMessages != 500 {
			t.Errorf("MaxMessages = %d, want 500", cfg.MaxMessages)
		}
		if cfg.Storage.Backend != "file" {
			t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
		}
	})

	t.Run("valid TOML parses", func(t *testing.T) {
		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "config.toml")
		content := `
language = "pt"
max_messages = 100
logging = false

[storage]
backend = "sqlite"
sqlite_path = "/tmp/vault.db"

[bot]
enabled = false
model = "gemini-pro"
requests_per_minute = 4
`
		if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Language != "pt" {
			t.Errorf("Language = %q, want pt", cfg.Language)
		}
		if cfg.MaxMessages != 100 {
			t.Errorf("MaxMessages = %d, want 100", cfg.MaxMessages)
		}
		if cfg.LoggingEnabled() {
			t.Error("logging = false was ignored")
		}
		if cfg.Storage.Backend != "sqlite" || cfg.Storage.SQLitePath != "/tmp/vault.db" {
			t.Errorf("Storage = %+v", cfg.Storage)
		}
		// Unset keys keep their defaults.
		if cfg.Storage.Key != storageKey {
			t.Errorf("Storage.Key = %q, want default", cfg.Storage.Key)
		}
		if cfg.Bot.BotEnabled() {
			t.Error("bot enabled = false was ignored")
		}
		if cfg.Bot.Model != "gemini-pro" || cfg.Bot.RequestsPerMinute != 4 {
			t.Errorf("Bot = %+v", cfg.Bot)
		}
		if cfg.Bot.Endpoint == "" {
			t.Error("Bot.Endpoint lost its default")
		}
	})

	t.Run("zero values get defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "config.toml")
		content := "max_messages = 0\nlanguage = \"\"\n[storage]\nbackend = \"\"\ntimeout_seconds = 0\n"
		if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxMessages != 500 {
			t.Errorf("MaxMessages = %d, want 500 (default)", cfg.MaxMessages)
		}
		if cfg.Language != "en" {
			t.Errorf("Language = %q, want en", cfg.Language)
		}
		if cfg.Storage.Backend != "file" || cfg.Storage.TimeoutSeconds != 5 {
			t.Errorf("Storage = %+v", cfg.Storage)
		}
	})

	t.Run("invalid TOML fails", func(t *testing.T) {
		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(cfgFile, []byte("max_messages = ["), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(cfgFile); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestBotAPIKey(t *testing.T) {
	t.Setenv("FORMAPP_TEST_KEY", "  k3y \n")
	b := BotConfig{APIKeyEnv: "FORMAPP_TEST_KEY"}
	if got := b.APIKey(); got != "k3y" {
		t.Errorf("APIKey = %q, want k3y", got)
	}
}

func TestLoadLastLoginAndSaveLastLogin(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "sub", "config.toml")

	if got := LoadLastLogin(cfgFile); got != "" {
		t.Errorf("LoadLastLogin with no file = %q, want empty", got)
	}

	if err := SaveLastLogin(cfgFile, "ana@x"); err != nil {
		t.Fatal(err)
	}
	if got := LoadLastLogin(cfgFile); got != "ana@x" {
		t.Errorf("LoadLastLogin = %q, want ana@x", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub", "last_login")); err != nil {
		t.Errorf("last_login not next to config: %v", err)
	}
}
