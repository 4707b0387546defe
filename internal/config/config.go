// Package config loads this engine's runtime configuration.
//
// .env loading is kept from the ancestor CLI (github.com/joho/godotenv); the
// hand-rolled getEnv* helpers are replaced with envconfig struct-tag binding
// across nested per-component structs, so each service's constructor takes
// just its own slice of Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// RadarConfig controls the Market Radar.
type RadarConfig struct {
	GammaBase   string  `envconfig:"GAMMA_BASE" default:"https://gamma-api.polymarket.com"`
	CacheTTLSec int     `envconfig:"RADAR_CACHE_TTL_SECONDS" default:"300"`
	MinVolume   float64 `envconfig:"RADAR_MIN_VOLUME" default:"500"`
	MinScore    float64 `envconfig:"RADAR_MIN_SCORE" default:"0.20"`
	ScanEvery   int     `envconfig:"RADAR_SCAN_INTERVAL_SECONDS" default:"300"`
}

// ListenerConfig controls the Signal Listener.
type ListenerConfig struct {
	CycleSeconds         int      `envconfig:"LISTENER_CYCLE_SECONDS" default:"2"`
	RecoverySeconds      int      `envconfig:"LISTENER_RECOVERY_SECONDS" default:"5"`
	TargetRefreshCycles  int      `envconfig:"LISTENER_TARGET_REFRESH_CYCLES" default:"10"`
	NewsFeeds            []string `envconfig:"LISTENER_NEWS_FEEDS" default:"https://news.google.com/rss/search?q=Trump+OR+Elon+Musk&hl=en-US&gl=US&ceid=US:en,https://finance.yahoo.com/news/rssindex"`
	PostsPerHandle       int      `envconfig:"LISTENER_POSTS_PER_HANDLE" default:"5"`
	NewsEntriesPerFeed   int      `envconfig:"LISTENER_NEWS_ENTRIES_PER_FEED" default:"10"`
	DedupCap             int      `envconfig:"LISTENER_DEDUP_CAP" default:"1000"`
	DedupPruneTo         int      `envconfig:"LISTENER_DEDUP_PRUNE_TO" default:"500"`
	TwitterBase          string   `envconfig:"TWITTER_SCRAPER_BASE"`
}

// ExecutorConfig controls the Trade Executor's gates and scoring.
type ExecutorConfig struct {
	MinConfidence    float64 `envconfig:"EXECUTOR_MIN_CONFIDENCE" default:"0.50"`
	MinSignalQuality float64 `envconfig:"EXECUTOR_MIN_SIGNAL_QUALITY" default:"0.40"`
	MinVolume        float64 `envconfig:"EXECUTOR_MIN_VOLUME" default:"5000"`
	MaxTradesPerDay  int     `envconfig:"EXECUTOR_MAX_TRADES_PER_DAY" default:"20"`
	BaseBetPct       float64 `envconfig:"EXECUTOR_BASE_BET_PCT" default:"0.02"`
	MaxBetPct        float64 `envconfig:"EXECUTOR_MAX_BET_PCT" default:"0.05"`
	MinBet           float64 `envconfig:"EXECUTOR_MIN_BET" default:"10"`
}

// PortfolioConfig controls the virtual Portfolio.
type PortfolioConfig struct {
	InitialCapital float64 `envconfig:"PORTFOLIO_INITIAL_CAPITAL" default:"10000"`
	BaseBetPct     float64 `envconfig:"PORTFOLIO_BASE_BET_PCT" default:"0.02"`
	MaxBetPct      float64 `envconfig:"PORTFOLIO_MAX_BET_PCT" default:"0.05"`
	MinBet         float64 `envconfig:"PORTFOLIO_MIN_BET" default:"10"`
}

// TrackerConfig controls the Smart-Money Tracker and its chain feed.
type TrackerConfig struct {
	ChainFeedWSURL string `envconfig:"CHAINFEED_WS_URL" default:"wss://ws-live-data.polymarket.com/"`
	GCIntervalSec  int    `envconfig:"TRACKER_GC_INTERVAL_SECONDS" default:"300"`
}

// TelegramConfig controls the messenger channel.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// StoreConfig controls the durable Postgres store.
type StoreConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// RedisConfig controls the signal bus / wallet-grade cache client.
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// Config is the engine's full runtime configuration.
type Config struct {
	Radar     RadarConfig
	Listener  ListenerConfig
	Executor  ExecutorConfig
	Portfolio PortfolioConfig
	Tracker   TrackerConfig
	Telegram  TelegramConfig
	Store     StoreConfig
	Redis     RedisConfig

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"DEV_MODE" default:"false"`
}

// Load reads .env (if present) then binds environment variables onto Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: bind environment: %w", err)
	}

	return &cfg, nil
}

// HasTelegram reports whether Telegram notifications are configured.
func (c *Config) HasTelegram() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}

// HasStore reports whether a durable store is configured.
func (c *Config) HasStore() bool {
	return strings.TrimSpace(c.Store.DatabaseURL) != ""
}

// Validate collects every invalid or missing required field into one error,
// matching the ancestor CLI's "collect, then return" shape.
func (c *Config) Validate() error {
	var problems []string

	if c.Radar.CacheTTLSec <= 0 {
		problems = append(problems, "RADAR_CACHE_TTL_SECONDS must be greater than 0")
	}
	if c.Listener.CycleSeconds <= 0 {
		problems = append(problems, "LISTENER_CYCLE_SECONDS must be greater than 0")
	}
	if c.Executor.MinConfidence < 0 || c.Executor.MinConfidence > 1 {
		problems = append(problems, "EXECUTOR_MIN_CONFIDENCE must be between 0 and 1")
	}
	if c.Portfolio.InitialCapital <= 0 {
		problems = append(problems, "PORTFOLIO_INITIAL_CAPITAL must be greater than 0")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		problems = append(problems, "REDIS_URL is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ErrMissingStore is returned by callers that require a durable store but
// none was configured.
var ErrMissingStore = errors.New("config: DATABASE_URL not set")
