package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakePortfolio struct {
	balance      decimal.Decimal
	canTrade     bool
	openErr      error
	opened       []string
	sizeRequests []float64
}

func (f *fakePortfolio) CalculatePositionSize(confidence float64) decimal.Decimal {
	f.sizeRequests = append(f.sizeRequests, confidence)
	return decimal.NewFromInt(100)
}

func (f *fakePortfolio) CanTrade(size decimal.Decimal) bool { return f.canTrade }

func (f *fakePortfolio) OpenPosition(marketID, side string, size decimal.Decimal, confidence float64) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, marketID)
	return nil
}

func (f *fakePortfolio) Balance() decimal.Decimal { return f.balance }

func defaultConfig() Config {
	return Config{
		MinConfidence:    0.50,
		MinSignalQuality: 0.40,
		MinVolume:        decimal.NewFromInt(5000),
		MaxTradesPerDay:  20,
	}
}

// TestExecuteSkipsLowVolume checks that a market below the hard volume
// floor is skipped regardless of signal strength.
func TestExecuteSkipsLowVolume(t *testing.T) {
	pf := &fakePortfolio{canTrade: true}
	e := New(defaultConfig(), pf, zap.NewNop())

	decision, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(1000),
		Liquidity:       decimal.NewFromInt(5000),
		SnipeScore:      0.9,
		Urgency:         "critical",
		Content:         `she said "yes" and confirmed it`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if decision.Executed {
		t.Error("decision.Executed = true, want false (volume below minimum)")
	}
	if decision.SkipReason != "volume below minimum" {
		t.Errorf("SkipReason = %q, want %q", decision.SkipReason, "volume below minimum")
	}
	if len(pf.opened) != 0 {
		t.Error("no position should have been opened")
	}
}

func TestExecuteSkipsPastDueNonCriticalMarket(t *testing.T) {
	pf := &fakePortfolio{canTrade: true}
	e := New(defaultConfig(), pf, zap.NewNop())
	days := 0

	decision, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(10000),
		Liquidity:       decimal.NewFromInt(10000),
		SnipeScore:      0.9,
		Urgency:         "expired",
		DaysRemaining:   &days,
		Content:         `he confirmed "yes"`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if decision.Executed {
		t.Error("expired market should not execute")
	}
	if decision.SkipReason != "days_remaining <= 0" {
		t.Errorf("SkipReason = %q, want days_remaining gate", decision.SkipReason)
	}
}

func TestExecuteSkipsCriticalMarketAtZeroDays(t *testing.T) {
	pf := &fakePortfolio{canTrade: true}
	e := New(defaultConfig(), pf, zap.NewNop())
	days := 0

	decision, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(100000),
		Liquidity:       decimal.NewFromInt(60000),
		SnipeScore:      1.0,
		Urgency:         "critical",
		DaysRemaining:   &days,
		Content:         `breaking: trump confirmed "yes" in an exclusive statement`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if decision.Executed {
		t.Error("days_remaining<=0 is rejected unconditionally, even at critical urgency")
	}
	if decision.SkipReason != "days_remaining <= 0" {
		t.Errorf("SkipReason = %q, want days_remaining gate", decision.SkipReason)
	}
}

func TestExecuteSkipsLowConfidence(t *testing.T) {
	pf := &fakePortfolio{canTrade: true}
	cfg := defaultConfig()
	cfg.MinSignalQuality = 0 // isolate the confidence gate
	e := New(cfg, pf, zap.NewNop())

	// Weak source, no keyword match, stale timestamp, no quote/clarity cue
	// -> low confidence that should land below the 0.50 default minimum.
	decision, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(10000),
		Liquidity:       decimal.NewFromInt(2000),
		SnipeScore:      0.3,
		Urgency:         "low",
		Content:         "something might possibly happen eventually",
		SourceType:      "other",
		SourceName:      "randomblog.example",
		MatchedKeywords: nil,
		SignalTimestamp: time.Now().Add(-1 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if decision.Executed {
		t.Errorf("expected skip on low confidence, got executed with confidence %v", decision.Confidence)
	}
	if len(pf.opened) != 0 {
		t.Error("no position should have been opened on a skipped trade")
	}
}

func TestExecuteRespectsDailyTradeLimit(t *testing.T) {
	pf := &fakePortfolio{canTrade: true}
	cfg := defaultConfig()
	cfg.MaxTradesPerDay = 1
	cfg.MinConfidence = 0 // isolate the daily-limit gate
	e := New(cfg, pf, zap.NewNop())

	in := TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(100000),
		Liquidity:       decimal.NewFromInt(60000),
		SnipeScore:      1.0,
		Urgency:         "critical",
		Content:         `confirmed "yes"`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	}

	first, err := e.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute (first): %v", err)
	}
	if !first.Executed {
		t.Fatalf("first trade should execute, got skip reason %q", first.SkipReason)
	}

	second, err := e.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute (second): %v", err)
	}
	if second.Executed {
		t.Error("second trade should be skipped by the daily trade limit")
	}
	if second.SkipReason != "daily trade limit reached" {
		t.Errorf("SkipReason = %q, want daily limit", second.SkipReason)
	}
}

func TestExecuteSkipsWhenPortfolioCannotAfford(t *testing.T) {
	pf := &fakePortfolio{canTrade: false}
	cfg := defaultConfig()
	cfg.MinConfidence = 0
	e := New(cfg, pf, zap.NewNop())

	decision, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(100000),
		Liquidity:       decimal.NewFromInt(60000),
		SnipeScore:      1.0,
		Urgency:         "critical",
		Content:         `confirmed "yes"`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if decision.Executed {
		t.Error("decision.Executed = true, want false when portfolio cannot afford size")
	}
	if decision.SkipReason != "insufficient portfolio balance" {
		t.Errorf("SkipReason = %q, want affordability gate", decision.SkipReason)
	}
}

func TestExecutePropagatesOpenPositionError(t *testing.T) {
	pf := &fakePortfolio{canTrade: true, openErr: errors.New("boom")}
	cfg := defaultConfig()
	cfg.MinConfidence = 0
	e := New(cfg, pf, zap.NewNop())

	_, err := e.Execute(context.Background(), TriggerInput{
		MarketID:        "mkt-1",
		Volume:          decimal.NewFromInt(100000),
		Liquidity:       decimal.NewFromInt(60000),
		SnipeScore:      1.0,
		Urgency:         "critical",
		Content:         `confirmed "yes"`,
		SourceType:      "Twitter",
		SourceName:      "@realDonaldTrump",
		MatchedKeywords: []string{"yes"},
		SignalTimestamp: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error to propagate from OpenPosition")
	}
}

func TestDetermineSideNegation(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{`he confirmed "yes"`, "YES"},
		{"she denies the allegation", "NO"},
		{"it won't happen", "NO"},
		{"they never said that", "NO"},
	}
	for _, tc := range cases {
		if got := determineSide(tc.content); got != tc.want {
			t.Errorf("determineSide(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}
