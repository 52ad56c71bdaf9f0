package config

import "path/filepath"

// Defaults returns a config populated with sane defaults. Load layers the
// config file on top of this, so absent keys keep these values.
func Defaults() *Config {
	dir := DefaultConfigDir()

	return &Config{
		General: GeneralConfig{
			LogLevel:        "info",
			ProfilePath:     filepath.Join(dir, "profile.yaml"),
			DefaultProvider: "openai",
		},
		Gateway: GatewayConfig{
			BaseURL:  "http://localhost:8080",
			Instance: "",
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:      true,
				APIKey:       "${OPENAI_API_KEY}",
				DefaultModel: "gpt-4o-mini",
			},
			"ollama": {
				Enabled:      false,
				APIBase:      "http://localhost:11434",
				DefaultModel: "llama3.2",
			},
		},
		AutoReply: AutoReplyConfig{
			Enabled:              true,
			IntervalSeconds:      5,
			PageSize:             30,
			MaxMessageAgeSeconds: 3600,
			LedgerSize:           1000,
			HistoryTurns:         20,
			MaxContacts:          50,
		},
		Sheets: SheetsConfig{
			DBPath: filepath.Join(dir, "sheets.db"),
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     9190,
			Endpoint: "/metrics",
		},
	}
}
