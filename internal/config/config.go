package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for arcco.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Gateway   GatewayConfig             `json:"gateway"`
	Providers map[string]ProviderConfig `json:"providers"`
	AutoReply AutoReplyConfig           `json:"autoReply"`
	Sheets    SheetsConfig              `json:"sheets"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel        string   `json:"logLevel"`
	LogFile         string   `json:"logFile,omitempty"`
	ProfilePath     string   `json:"profilePath"`
	DefaultProvider string   `json:"defaultProvider"`
	FailoverChain   []string `json:"failoverChain,omitempty"` // provider failover order
}

// GatewayConfig points at one Evolution API instance: one connected
// WhatsApp session.
type GatewayConfig struct {
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey,omitempty"`
	Instance string `json:"instance"`
}

type ProviderConfig struct {
	Enabled      bool   `json:"enabled"`
	APIBase      string `json:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

type AutoReplyConfig struct {
	Enabled              bool `json:"enabled"`
	IntervalSeconds      int  `json:"intervalSeconds"`
	PageSize             int  `json:"pageSize"`
	MaxMessageAgeSeconds int  `json:"maxMessageAgeSeconds"`
	LedgerSize           int  `json:"ledgerSize"`
	HistoryTurns         int  `json:"historyTurns"`
	MaxContacts          int  `json:"maxContacts"`
}

type SheetsConfig struct {
	DBPath string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.arcco).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arcco"
	}
	return filepath.Join(home, ".arcco")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.ProfilePath = ExpandPath(cfg.General.ProfilePath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Sheets.DBPath = ExpandPath(cfg.Sheets.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is
// unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.AutoReply.IntervalSeconds < 1 {
		errs = append(errs, "autoReply.intervalSeconds must be >= 1")
	}
	if cfg.AutoReply.PageSize < 1 || cfg.AutoReply.PageSize > 500 {
		errs = append(errs, "autoReply.pageSize must be between 1 and 500")
	}
	if cfg.AutoReply.MaxMessageAgeSeconds < 1 {
		errs = append(errs, "autoReply.maxMessageAgeSeconds must be >= 1")
	}
	if cfg.AutoReply.LedgerSize < 2 {
		errs = append(errs, "autoReply.ledgerSize must be >= 2")
	}
	if cfg.AutoReply.HistoryTurns < 2 {
		errs = append(errs, "autoReply.historyTurns must be >= 2")
	}
	if cfg.AutoReply.MaxContacts < 1 {
		errs = append(errs, "autoReply.maxContacts must be >= 1")
	}

	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if cfg.AutoReply.Enabled && cfg.Gateway.BaseURL == "" {
		errs = append(errs, "gateway.baseUrl is required when autoReply is enabled")
	}
	if cfg.AutoReply.Enabled && cfg.Gateway.Instance == "" {
		errs = append(errs, "gateway.instance is required when autoReply is enabled")
	}

	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	for name, pc := range cfg.Providers {
		// ollama and openai carry built-in API bases.
		if pc.Enabled && pc.APIBase == "" && name != "ollama" && name != "openai" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
