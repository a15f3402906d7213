package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type StorageConfig struct {
	Backend         string `toml:"backend"` // file, sqlite, redis, mongo, memory
	Dir             string `toml:"dir"`
	SQLitePath      string `toml:"sqlite_path"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
	Key             string `toml:"key"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

type BotConfig struct {
	Enabled           *bool  `toml:"enabled"` // nil = default (true)
	APIKeyEnv         string `toml:"api_key_env"`
	Model             string `toml:"model"`
	Endpoint          string `toml:"endpoint"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	MaxFailures       int    `toml:"max_failures"`
	CooldownSeconds   int    `toml:"cooldown_seconds"`
}

// BotEnabled returns whether the FormBot contact is offered.
func (b BotConfig) BotEnabled() bool {
	if b.Enabled == nil {
		return true
	}
	return *b.Enabled
}

// APIKey reads the key from the configured environment variable.
func (b BotConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(b.APIKeyEnv))
}

type Config struct {
	Language    string        `toml:"language"`
	MaxMessages int           `toml:"max_messages"`
	Logging     *bool         `toml:"logging"` // nil = default (true)
	LogDir      string        `toml:"log_dir"`
	Storage     StorageConfig `toml:"storage"`
	Bot         BotConfig     `toml:"bot"`
}

// LoggingEnabled returns whether chat transcripts are written.
func (c Config) LoggingEnabled() bool {
	if c.Logging == nil {
		return true
	}
	return *c.Logging
}

func defaultConfig() Config {
	dir := dataDir()
	return Config{
		Language:    "en",
		MaxMessages: 500,
		LogDir:      filepath.Join(dir, "logs"),
		Storage: StorageConfig{
			Backend:         "file",
			Dir:             dir,
			SQLitePath:      filepath.Join(dir, "formapp.db"),
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "formapp",
			MongoCollection: "vault",
			Key:             storageKey,
			TimeoutSeconds:  5,
		},
		Bot: BotConfig{
			APIKeyEnv:         "API_KEY",
			Model:             "gemini-3-flash-preview",
			Endpoint:          "https://generativelanguage.googleapis.com/v1beta",
			TimeoutSeconds:    30,
			RequestsPerMinute: 15,
			MaxFailures:       3,
			CooldownSeconds:   30,
		},
	}
}

// dataDir is where the vault and transcripts live by default.
func dataDir() string {
	if p := os.Getenv("XDG_DATA_HOME"); p != "" {
		return filepath.Join(p, "formapp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "formapp-data"
	}
	return filepath.Join(home, ".local", "share", "formapp")
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("FORMAPP_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "formapp", "config.toml")
}

func LoadConfig(flagPath string) (Config, error) {
	cfg := defaultConfig()

	path := configPath(flagPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	def := defaultConfig()
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = def.Storage.Key
	}
	if cfg.Storage.TimeoutSeconds <= 0 {
		cfg.Storage.TimeoutSeconds = def.Storage.TimeoutSeconds
	}
	if cfg.Bot.APIKeyEnv == "" {
		cfg.Bot.APIKeyEnv = def.Bot.APIKeyEnv
	}
	if cfg.Bot.Model == "" {
		cfg.Bot.Model = def.Bot.Model
	}
	if cfg.Bot.Endpoint == "" {
		cfg.Bot.Endpoint = def.Bot.Endpoint
	}
	if cfg.Bot.TimeoutSeconds <= 0 {
		cfg.Bot.TimeoutSeconds = def.Bot.TimeoutSeconds
	}

	return cfg, nil
}

// lastLoginPath returns the path to the last_login file next to the config.
func lastLoginPath(cfgFlagPath string) string {
	dir := filepath.Dir(configPath(cfgFlagPath))
	return filepath.Join(dir, "last_login")
}

// LoadLastLogin returns the email of the last successful login, or "".
func LoadLastLogin(cfgFlagPath string) string {
	data, err := os.ReadFile(lastLoginPath(cfgFlagPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveLastLogin remembers email for the next start.
func SaveLastLogin(cfgFlagPath, email string) error {
	path := lastLoginPath(cfgFlagPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(email+"\n"), 0644)
}
