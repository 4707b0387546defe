package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dantezy/snipe-engine/internal/chainfeed"
	"github.com/dantezy/snipe-engine/internal/config"
	"github.com/dantezy/snipe-engine/internal/executor"
	"github.com/dantezy/snipe-engine/internal/listener"
	"github.com/dantezy/snipe-engine/internal/logging"
	"github.com/dantezy/snipe-engine/internal/portfolio"
	"github.com/dantezy/snipe-engine/internal/radar"
	"github.com/dantezy/snipe-engine/internal/redisx"
	"github.com/dantezy/snipe-engine/internal/signals"
	"github.com/dantezy/snipe-engine/internal/smartmoney"
	"github.com/dantezy/snipe-engine/internal/store"
	"github.com/dantezy/snipe-engine/internal/telegram"
	"github.com/dantezy/snipe-engine/internal/walletscore"
)

const (
	version = "0.1.0"
	banner  = `
 ____   ___  _  __   ____  _   _ ___ ____  _____ ____
|  _ \ / _ \| | \ \ / /  \/  |/ ___| ___ \|_   _|  _ \
| |_) | | | | |  \ V /| |\/| |\__ \   ) | | | | |_) |
|  __/| |_| | |___| | | |  | |___) |  / /  | | |  __/
|_|    \___/|_____|_| |_|  |_|____/____|   |_| |_|

Snipe Engine v%s
Prediction-market sniping: radar + listener + smart-money, paper trading only
`
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[sniper] ")

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 70))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.Development})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	printConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot, err := telegram.NewBot(cfg.Telegram.BotToken, fmt.Sprintf("%d", cfg.Telegram.ChatID), logger)
	if err != nil {
		log.Fatalf("failed to create telegram bot: %v", err)
	}

	redisClient, err := redisx.New(ctx, cfg.Redis.URL, logger)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var db *store.Store
	if cfg.HasStore() {
		db, err = store.New(cfg.Store.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("failed to connect to store: %v", err)
		}
		defer db.Close()
	} else {
		logger.Warn("no DATABASE_URL configured, running without durable persistence")
	}

	publisher := signals.New(redisClient, signalsStoreOrNil(db), bot, logger)

	exchange := radar.NewExchangeClient(cfg.Radar.GammaBase)
	rdr := radar.New(exchange, storeFavoritesOrNil(db), publisher, time.Duration(cfg.Radar.CacheTTLSec)*time.Second, logger)

	scorer := walletscore.New(redisClient, storeWalletsOrNil(db), logger)
	tracker := smartmoney.New(scorer, publisher, logger)

	acct := portfolio.New(cfg.Portfolio.InitialCapital, portfolio.Sizing{
		BaseBetPct: cfg.Portfolio.BaseBetPct,
		MaxBetPct:  cfg.Portfolio.MaxBetPct,
		MinBet:     decimalFromFloat(cfg.Portfolio.MinBet),
	}, logger)

	exec := executor.New(executor.Config{
		MinConfidence:    cfg.Executor.MinConfidence,
		MinSignalQuality: cfg.Executor.MinSignalQuality,
		MinVolume:        decimalFromFloat(cfg.Executor.MinVolume),
		MaxTradesPerDay:  cfg.Executor.MaxTradesPerDay,
	}, acct, logger)

	var posts listener.PostSource
	if cfg.Listener.TwitterBase != "" {
		posts = listener.NewHTTPPostSource(cfg.Listener.TwitterBase)
	} else {
		logger.Warn("no TWITTER_SCRAPER_BASE configured, listener will skip social sources")
	}
	news := listener.NewGofeedNewsSource()

	lst := listener.New(listener.Config{
		CycleInterval:       time.Duration(cfg.Listener.CycleSeconds) * time.Second,
		RecoveryInterval:    time.Duration(cfg.Listener.RecoverySeconds) * time.Second,
		TargetRefreshCycles: cfg.Listener.TargetRefreshCycles,
		PostsPerHandle:      cfg.Listener.PostsPerHandle,
		NewsEntriesPerFeed:  cfg.Listener.NewsEntriesPerFeed,
		DedupCap:            cfg.Listener.DedupCap,
		DedupPruneTo:        cfg.Listener.DedupPruneTo,
		NewsFeeds:           cfg.Listener.NewsFeeds,
	}, rdr, keywordStoreOrNil(db), posts, news, publisher, exec, logger)

	feed := chainfeed.New(cfg.Tracker.ChainFeedWSURL, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal: %v, initiating shutdown...", sig)
		cancel()
	}()

	if err := bot.NotifyStarted(); err != nil {
		log.Printf("warning: failed to send startup notification: %v", err)
	}

	log.Println("starting services...")
	fmt.Println(strings.Repeat("-", 70))

	go lst.Start(ctx)
	go runChainFeed(ctx, feed, tracker, logger)
	go runScanLoop(ctx, rdr, tracker, time.Duration(cfg.Radar.ScanEvery)*time.Second, logger)
	go runTrackerGC(ctx, tracker, time.Duration(cfg.Tracker.GCIntervalSec)*time.Second)

	<-ctx.Done()

	log.Println("shutting down...")
	lst.Stop()
	if err := feed.Close(); err != nil {
		logger.Warn("error closing chain feed", zap.Error(err))
	}

	if err := bot.NotifyStopped(); err != nil {
		log.Printf("warning: failed to send shutdown notification: %v", err)
	}

	log.Println("shutdown complete")
}

// runScanLoop periodically forces a fresh Radar scan and keeps the
// Smart-Money Tracker's active-market set in sync with it.
func runScanLoop(ctx context.Context, rdr *radar.Radar, tracker *smartmoney.Tracker, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scan := func() {
		markets, err := rdr.Scan(ctx, false)
		if err != nil {
			logger.Warn("radar: scan failed", zap.Error(err))
			return
		}
		for _, m := range markets {
			tracker.StartTracking(m.ID)
		}
		logger.Info("radar: scan complete", zap.Int("count", len(markets)))
	}

	scan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}

// runChainFeed drives the on-chain fill stream into the Smart-Money
// Tracker until ctx is cancelled.
func runChainFeed(ctx context.Context, feed *chainfeed.Feed, tracker *smartmoney.Tracker, logger *zap.Logger) {
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("chainfeed: run exited", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fill, ok := <-feed.Fills():
			if !ok {
				return
			}
			if err := tracker.TrackOrder(ctx, fill.MarketID, fill.Wallet, fill.Side, fill.Size); err != nil {
				logger.Warn("smartmoney: track order failed", zap.Error(err))
			}
		}
	}
}

func runTrackerGC(ctx context.Context, tracker *smartmoney.Tracker, interval time.Duration) {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.GC(0)
		}
	}
}

// signalsStoreOrNil adapts db to signals.Store, returning a genuinely nil
// interface (not an interface wrapping a nil *store.Store) when no durable
// store is configured.
func signalsStoreOrNil(db *store.Store) signals.Store {
	if db == nil {
		return nil
	}
	return db
}

func keywordStoreOrNil(db *store.Store) listener.KeywordStore {
	if db == nil {
		return nil
	}
	return db
}

func storeFavoritesOrNil(db *store.Store) radar.FavoriteSource {
	if db == nil {
		return nil
	}
	return db
}

func storeWalletsOrNil(db *store.Store) walletscore.Store {
	if db == nil {
		return nil
	}
	return db
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func printConfig(cfg *config.Config) {
	telegramStatus := "disabled"
	if cfg.HasTelegram() {
		telegramStatus = "enabled"
	}
	storeStatus := "disabled"
	if cfg.HasStore() {
		storeStatus = "enabled"
	}

	log.Printf("gamma base:       %s", cfg.Radar.GammaBase)
	log.Printf("radar cache ttl:  %ds", cfg.Radar.CacheTTLSec)
	log.Printf("listener cycle:   %ds", cfg.Listener.CycleSeconds)
	log.Printf("initial capital:  $%.2f", cfg.Portfolio.InitialCapital)
	log.Printf("max trades/day:   %d", cfg.Executor.MaxTradesPerDay)
	log.Printf("telegram:         %s", telegramStatus)
	log.Printf("durable store:    %s", storeStatus)
	fmt.Println(strings.Repeat("-", 70))
}
