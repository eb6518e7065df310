package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = "/tmp/kharcha.db"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"unknown provider", func(c *Config) { c.AI.Provider = "ollama" }, true},
		{"empty model", func(c *Config) { c.AI.Model = "" }, true},
		{"temperature out of range", func(c *Config) { c.AI.Temperature = 1.5 }, true},
		{"negative max tokens", func(c *Config) { c.AI.MaxTokens = -1 }, true},
		{"zero max turns", func(c *Config) { c.Assistant.MaxTurns = 0 }, true},
		{"zero confirm ttl", func(c *Config) { c.Assistant.ConfirmTTLMinutes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
