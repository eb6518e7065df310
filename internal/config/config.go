// Package config defines the kharcha configuration and its loader.
package config

// Config represents the main kharcha configuration.
type Config struct {
	// Server holds HTTP server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Database holds persistence settings
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// AI holds LLM provider settings
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Assistant holds chat assistant behavior settings
	Assistant AssistantConfig `json:"assistant" mapstructure:"assistant"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// AIConfig holds LLM provider configuration.
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // anthropic, openai, gemini
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// AssistantConfig holds chat assistant behavior settings.
type AssistantConfig struct {
	// MaxTurns caps the tool-calling loop per chat request
	MaxTurns int `json:"max_turns" mapstructure:"max_turns"`
	// ConfirmTTLMinutes is how long a staged update/delete proposal stays valid
	ConfirmTTLMinutes int `json:"confirm_ttl_minutes" mapstructure:"confirm_ttl_minutes"`
	// SweepSchedule is the cron expression for pruning expired proposals
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Database: DatabaseConfig{},
		AI: AIConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Assistant: AssistantConfig{
			MaxTurns:          10,
			ConfirmTTLMinutes: 5,
			SweepSchedule:     "*/5 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
