package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/snipe-engine/internal/config"
	"github.com/dantezy/snipe-engine/internal/radar"
)

const (
	version = "0.1.0"
	banner  = `
 ____   ___  _  __   ____   ____    _    _   _ _   _ _____ ____
|  _ \ / _ \| | \ \ / /  \/  |/ ___|  / \  | \ | | \ | | ____|  _ \
| |_) | | | | |  \ V /| |\/| |\___ \ / _ \ |  \| |  \| |  _| | |_) |
|  __/| |_| | |___| | | |  | | ___) / ___ \| |\  | |\  | |___|  _ <
|_|    \___/|_____|_| |_|  |_||____/_/   \_\_| \_|_| \_|_____|_| \_\

Radar Scan v%s
Previews the Market Radar's enriched, scored, snipable market set
`
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[radar-scan] ")

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 100))

	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: failed to load config: %v", err)
		log.Println("continuing with defaults...")
		cfg = &config.Config{}
		cfg.Radar.GammaBase = "https://gamma-api.polymarket.com"
		cfg.Radar.CacheTTLSec = 300
	}

	logger := zap.NewNop()

	log.Println("initializing exchange client...")
	exchange := radar.NewExchangeClient(cfg.Radar.GammaBase)
	rdr := radar.New(exchange, nil, nil, time.Duration(cfg.Radar.CacheTTLSec)*time.Second, logger)

	log.Println("scanning for snipable markets...")
	markets, err := rdr.Scan(context.Background(), false)
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	if len(markets) == 0 {
		log.Println("no snipable markets found")
		os.Exit(0)
	}

	fmt.Println()
	printHeader()
	for _, m := range markets {
		printMarket(m)
	}

	fmt.Println()
	log.Printf("found %d snipable market(s)", len(markets))
}

func printHeader() {
	fmt.Printf("%-58s | %-6s | %-8s | %-10s | %-10s\n",
		"Title", "Score", "Urgency", "Category", "Days Left")
	fmt.Println(strings.Repeat("-", 100))
}

func printMarket(m radar.Market) {
	title := truncate(m.Title, 56)

	daysLeft := "unknown"
	if m.DaysRemaining != nil {
		daysLeft = fmt.Sprintf("%d", *m.DaysRemaining)
	}

	fmt.Printf("%-58s | %.4f | %-8s | %-10s | %-10s\n",
		title, m.SnipeScore, m.Urgency, m.Category, daysLeft)

	if len(m.Persons) > 0 {
		fmt.Printf("  Persons: %s\n", strings.Join(m.Persons, ", "))
	}
	fmt.Printf("  ID: %s  Volume: %s  Liquidity: %s\n", m.ID, m.Volume.String(), m.Liquidity.String())
	fmt.Println()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
