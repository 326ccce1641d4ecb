package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("CHAIN_ID", "")
	t.Setenv("STATE_CACHE_TTL", "")

	cfg := LoadConfig()
	if cfg.AIProvider != "openai" {
		t.Errorf("expected default provider openai, got %q", cfg.AIProvider)
	}
	if cfg.ChainID != 11155111 {
		t.Errorf("expected sepolia chain id, got %d", cfg.ChainID)
	}
	if cfg.StateCacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %v", cfg.StateCacheTTL)
	}
	if cfg.DefaultDailyLimit != "0.1" {
		t.Errorf("expected daily limit 0.1, got %q", cfg.DefaultDailyLimit)
	}
}

func TestLoadConfigProviderIsLowercased(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Gemini")
	cfg := LoadConfig()
	if cfg.AIProvider != "gemini" {
		t.Errorf("expected gemini, got %q", cfg.AIProvider)
	}
}

func TestValidatePresenceChecks(t *testing.T) {
	cfg := Config{
		AIProvider:     "gemini",
		DBDriver:       "sqlite",
		SQLitePath:     "x.db",
		StorageBackend: "db",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "ALCHEMY_API_KEY", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in error, got %v", want, err)
		}
	}
	if strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("openai key should not be required for gemini: %v", err)
	}

	cfg.JWTSecret = "s"
	cfg.AlchemyAPIKey = "a"
	cfg.GeminiAPIKey = "g"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsUnknownSelectors(t *testing.T) {
	cfg := Config{AIProvider: "bard", DBDriver: "mysql", StorageBackend: "s3", JWTSecret: "s", AlchemyAPIKey: "a"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"AI_PROVIDER", "DB_DRIVER", "STORAGE_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in error, got %v", want, err)
		}
	}
}

func TestRPCURL(t *testing.T) {
	cfg := Config{AlchemyNetwork: "eth-sepolia", AlchemyAPIKey: "k"}
	if got := cfg.RPCURL(); got != "https://eth-sepolia.g.alchemy.com/v2/k" {
		t.Errorf("unexpected url %s", got)
	}
}
