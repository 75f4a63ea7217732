package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Models     ModelsConfig     `koanf:"models"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Lifecycle  LifecycleConfig  `koanf:"lifecycle"`
	Retry      RetryConfig      `koanf:"retry"`
	Adapters   AdaptersConfig   `koanf:"adapters"`
	Daemon     DaemonConfig     `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	Path         string `koanf:"path"`
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name"`
	Provider string `koanf:"provider"` // "openai", "anthropic", "gemini"
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

type ModelsConfig struct {
	Default   string          `koanf:"default"`
	Fallback  string          `koanf:"fallback"`
	Embedding string          `koanf:"embedding"`
	Registry  []ModelRegistry `koanf:"registry"`
}

type ClassifierConfig struct {
	Timeout    string       `koanf:"timeout"`
	MaxRetries int          `koanf:"max_retries"`
	Memory     MemoryConfig `koanf:"memory"`
}

type MemoryConfig struct {
	Enabled bool `koanf:"enabled"`
	TopK    int  `koanf:"top_k"`
}

type LifecycleConfig struct {
	AutoThreshold float64 `koanf:"auto_threshold"`
}

type RetryConfig struct {
	Schedule    string `koanf:"schedule"` // cron spec or "@every 1m"
	MaxAttempts int    `koanf:"max_attempts"`
	Cooldown    string `koanf:"cooldown"`
}

type AdaptersConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Slack    SlackConfig    `koanf:"slack"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type SlackConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	Channel  string `koanf:"channel"`
}

type DaemonConfig struct {
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

const (
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "10s"
	DefaultServerWriteTimeout    = "10s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"
	DefaultStoreLockTimeout      = "30s"
	DefaultStoreLockRetry        = "100ms"
	DefaultStoreLockMaxRetry     = 300
	DefaultModelDefault          = "gemini-2.5-flash"
	DefaultModelFallback         = "gpt-4o-mini"
	DefaultModelEmbedding        = "text-embedding-3-small"
	DefaultClassifierTimeout     = "30s"
	DefaultClassifierMaxRetries  = 2
	DefaultMemoryTopK            = 3
	DefaultAutoThreshold         = 0.75
	DefaultRetrySchedule         = "@every 1m"
	DefaultRetryMaxAttempts      = 5
	DefaultRetryCooldown         = "5m"
	DefaultTelegramUpdateTimeout = 60
	DefaultDaemonShutdownTimeout = "30s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             DefaultServerPort,
		"server.log_level":        DefaultServerLogLevel,
		"server.read_timeout":     DefaultServerReadTimeout,
		"server.write_timeout":    DefaultServerWriteTimeout,
		"server.idle_timeout":     DefaultServerIdleTimeout,
		"server.shutdown_timeout": DefaultServerShutdownTimeout,
		"store.path":              filepath.Join(os.Getenv("HOME"), ".denrei", "data"),
		"store.lock_timeout":      DefaultStoreLockTimeout,
		"store.lock_retry":        DefaultStoreLockRetry,
		"store.lock_max_retry":    DefaultStoreLockMaxRetry,
		"models.default":          DefaultModelDefault,
		"models.fallback":         DefaultModelFallback,
		"models.embedding":        DefaultModelEmbedding,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "gemini"},
			{Name: DefaultModelFallback, Provider: "openai"},
			{Name: "claude-sonnet-4-20250514", Provider: "anthropic"},
			{Name: DefaultModelEmbedding, Provider: "openai"},
		},
		"classifier.timeout":               DefaultClassifierTimeout,
		"classifier.max_retries":           DefaultClassifierMaxRetries,
		"classifier.memory.enabled":        true,
		"classifier.memory.top_k":          DefaultMemoryTopK,
		"lifecycle.auto_threshold":         DefaultAutoThreshold,
		"retry.schedule":                   DefaultRetrySchedule,
		"retry.max_attempts":               DefaultRetryMaxAttempts,
		"retry.cooldown":                   DefaultRetryCooldown,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".denrei", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("DENREI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DENREI_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	// Inject standard env vars for registry entries without explicit keys
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "openai" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "anthropic" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "gemini" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}

	return &cfg, nil
}
