package config

import "fmt"

var supportedProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"gemini":    true,
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if !supportedProviders[c.AI.Provider] {
		return fmt.Errorf("unsupported AI provider: %q", c.AI.Provider)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("AI model cannot be empty")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 1 {
		return fmt.Errorf("AI temperature must be between 0 and 1, got %v", c.AI.Temperature)
	}
	if c.AI.MaxTokens < 0 {
		return fmt.Errorf("AI max tokens cannot be negative")
	}
	if c.Assistant.MaxTurns <= 0 {
		return fmt.Errorf("assistant max turns must be positive")
	}
	if c.Assistant.ConfirmTTLMinutes <= 0 {
		return fmt.Errorf("assistant confirm TTL must be positive")
	}
	return nil
}
