package config

import (
	"strings"
	"testing"
)

func validBaseConfig() *Config {
	return &Config{
		Radar:     RadarConfig{CacheTTLSec: 300},
		Listener:  ListenerConfig{CycleSeconds: 2},
		Executor:  ExecutorConfig{MinConfidence: 0.5},
		Portfolio: PortfolioConfig{InitialCapital: 10000},
		Redis:     RedisConfig{URL: "redis://localhost:6379/0"},
	}
}

func TestValidatePassesOnWellFormedConfig(t *testing.T) {
	if err := validBaseConfig().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsMultipleProblems(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Radar.CacheTTLSec = 0
	cfg.Executor.MinConfidence = 1.5
	cfg.Redis.URL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected Validate to return an error")
	}
	msg := err.Error()
	for _, want := range []string{"RADAR_CACHE_TTL_SECONDS", "EXECUTOR_MIN_CONFIDENCE", "REDIS_URL"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestHasTelegramRequiresBothFields(t *testing.T) {
	cfg := &Config{}
	if cfg.HasTelegram() {
		t.Error("HasTelegram() = true with no token or chat id configured")
	}
	cfg.Telegram.BotToken = "token"
	if cfg.HasTelegram() {
		t.Error("HasTelegram() = true with only a bot token, no chat id")
	}
	cfg.Telegram.ChatID = 123
	if !cfg.HasTelegram() {
		t.Error("HasTelegram() = false with both bot token and chat id set")
	}
}

func TestHasStoreRequiresNonBlankURL(t *testing.T) {
	cfg := &Config{}
	if cfg.HasStore() {
		t.Error("HasStore() = true with no DATABASE_URL")
	}
	cfg.Store.DatabaseURL = "   "
	if cfg.HasStore() {
		t.Error("HasStore() = true with a blank DATABASE_URL")
	}
	cfg.Store.DatabaseURL = "postgres://localhost/db"
	if !cfg.HasStore() {
		t.Error("HasStore() = false with a configured DATABASE_URL")
	}
}

