// Package executor scores a (signal, market) pair and, if it clears every
// gate, sizes and opens a paper trade against the Portfolio.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TriggerInput is everything the Executor needs to score and gate a
// candidate trade: the market snapshot it fired on, plus the triggering
// content and its provenance.
type TriggerInput struct {
	MarketID        string
	Volume          decimal.Decimal
	Liquidity       decimal.Decimal
	SnipeScore      float64
	Urgency         string
	DaysRemaining   *int
	Content         string
	SourceType      string // "Twitter", "News", "SmartMoney", ...
	SourceName      string
	MatchedKeywords []string
	SignalTimestamp time.Time
}

// Decision is the Executor's verdict on a TriggerInput.
type Decision struct {
	Executed        bool
	SkipReason      string
	Side            string
	Size            decimal.Decimal
	Confidence      float64
	SignalQuality   float64
	MarketQuality   float64
}

// Portfolio is the narrow surface the Executor needs from the virtual
// account: sizing, affordability, and opening a position. Defined here
// (rather than importing the portfolio package's concrete type) so
// Executor tests can substitute a fake.
type Portfolio interface {
	CalculatePositionSize(confidence float64) decimal.Decimal
	CanTrade(size decimal.Decimal) bool
	OpenPosition(marketID, side string, size decimal.Decimal, confidence float64) error
	Balance() decimal.Decimal
}

// Config controls the Executor's gates, per SPEC_FULL §4.6.
type Config struct {
	MinConfidence    float64
	MinSignalQuality float64
	MinVolume        decimal.Decimal
	MaxTradesPerDay  int
}

// Executor decides whether a trigger warrants a paper trade.
type Executor struct {
	cfg       Config
	portfolio Portfolio
	log       *zap.Logger

	mu            sync.Mutex
	tradesToday   int
	counterDate   string // YYYY-MM-DD (UTC)
}

// New builds an Executor.
func New(cfg Config, portfolio Portfolio, log *zap.Logger) *Executor {
	return &Executor{cfg: cfg, portfolio: portfolio, log: log}
}

// Execute scores in, applies the gates in SPEC_FULL §4.6's declared order,
// and — if every gate passes — sizes and opens the position.
func (e *Executor) Execute(ctx context.Context, in TriggerInput) (Decision, error) {
	e.resetDailyCounterIfRolledOver()

	signalQuality := calculateSignalQuality(in)
	marketQuality := calculateMarketQuality(in)
	confidence := 0.60*signalQuality + 0.40*marketQuality

	decision := Decision{
		Side:          determineSide(in.Content),
		Confidence:    confidence,
		SignalQuality: signalQuality,
		MarketQuality: marketQuality,
	}

	if in.Volume.LessThan(e.cfg.MinVolume) {
		decision.SkipReason = "volume below minimum"
		return decision, nil
	}
	if signalQuality < e.cfg.MinSignalQuality {
		decision.SkipReason = "signal_quality below minimum"
		return decision, nil
	}
	if in.DaysRemaining != nil && *in.DaysRemaining <= 0 {
		decision.SkipReason = "days_remaining <= 0"
		return decision, nil
	}

	e.mu.Lock()
	tradesToday := e.tradesToday
	e.mu.Unlock()
	if tradesToday >= e.cfg.MaxTradesPerDay {
		decision.SkipReason = "daily trade limit reached"
		return decision, nil
	}

	if confidence < e.cfg.MinConfidence {
		decision.SkipReason = "confidence below minimum"
		return decision, nil
	}

	size := e.portfolio.CalculatePositionSize(confidence)
	if !e.portfolio.CanTrade(size) {
		decision.SkipReason = "insufficient portfolio balance"
		return decision, nil
	}

	if err := e.portfolio.OpenPosition(in.MarketID, decision.Side, size, confidence); err != nil {
		return decision, fmt.Errorf("executor: open position: %w", err)
	}

	e.mu.Lock()
	e.tradesToday++
	e.mu.Unlock()

	decision.Executed = true
	decision.Size = size

	e.log.Info("executor: trade opened",
		zap.String("market_id", in.MarketID),
		zap.String("side", decision.Side),
		zap.String("size", size.String()),
		zap.Float64("confidence", confidence))

	return decision, nil
}

func (e *Executor) resetDailyCounterIfRolledOver() {
	today := time.Now().UTC().Format("2006-01-02")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.counterDate != today {
		e.counterDate = today
		e.tradesToday = 0
	}
}

// calculateSignalQuality implements SPEC_FULL §4.6's weighted formula.
func calculateSignalQuality(in TriggerInput) float64 {
	return 0.40*sourceReliability(in.SourceType, in.SourceName) +
		0.30*keywordMatch(in.Content, in.MatchedKeywords) +
		0.20*timing(in.SignalTimestamp) +
		0.10*clarity(in.Content)
}

func sourceReliability(sourceType, sourceName string) float64 {
	switch strings.ToLower(sourceType) {
	case "twitter":
		if strings.HasPrefix(sourceName, "@") {
			return 1.0
		}
		return 0.8
	case "news":
		if isMajorNewsSource(sourceName) {
			return 0.7
		}
		return 0.5
	default:
		return 0.3
	}
}

var majorNewsSources = []string{"reuters", "bloomberg", "ap.org", "nytimes", "wsj", "yahoo", "google.com/rss"}

func isMajorNewsSource(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range majorNewsSources {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func keywordMatch(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.3
	}
	lower := strings.ToLower(content)
	if hasExactQuote(content) {
		return 1.0
	}
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}
	rate := float64(matched) / float64(len(keywords))
	switch {
	case rate >= 1.0:
		return 0.9
	case rate >= 0.75:
		return 0.7
	case rate >= 0.50:
		return 0.5
	default:
		return 0.3
	}
}

func hasExactQuote(content string) bool {
	return strings.Contains(content, "\"") || strings.Contains(content, "'")
}

func timing(signalAt time.Time) float64 {
	if signalAt.IsZero() {
		return 0.2
	}
	age := time.Since(signalAt)
	switch {
	case age < 10*time.Second:
		return 1.0
	case age < time.Minute:
		return 0.9
	case age < 5*time.Minute:
		return 0.7
	case age < 15*time.Minute:
		return 0.5
	default:
		return 0.2
	}
}

var actionWords = []string{"announce", "declare", "confirm", "reveal"}
var hedgeWords = []string{"maybe", "possibly", "might", "could"}

func clarity(content string) float64 {
	lower := strings.ToLower(content)
	if hasExactQuote(content) {
		return 1.0
	}
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			return 0.8
		}
	}
	for _, w := range hedgeWords {
		if strings.Contains(lower, w) {
			return 0.3
		}
	}
	return 0.5
}

// calculateMarketQuality implements SPEC_FULL §4.6's weighted formula, with
// the distinct (wider) bucket breakpoints for market quality vs. the
// Radar's own snipe_score volume/liquidity sub-scores.
func calculateMarketQuality(in TriggerInput) float64 {
	volume, _ := in.Volume.Float64()
	liquidity, _ := in.Liquidity.Float64()

	return 0.50*in.SnipeScore +
		0.20*volumeBucket(volume) +
		0.20*liquidityBucket(liquidity) +
		0.10*urgencyScore(in.DaysRemaining)
}

func volumeBucket(volume float64) float64 {
	switch {
	case volume >= 100000:
		return 1.0
	case volume >= 50000:
		return 0.8
	case volume >= 10000:
		return 0.6
	case volume >= 5000:
		return 0.4
	default:
		return 0.2
	}
}

func liquidityBucket(liquidity float64) float64 {
	switch {
	case liquidity >= 50000:
		return 1.0
	case liquidity >= 20000:
		return 0.8
	case liquidity >= 5000:
		return 0.6
	case liquidity >= 1000:
		return 0.4
	default:
		return 0.2
	}
}

// urgencyScore computes market quality's urgency sub-score directly from
// days_remaining, with the same breakpoints as the Radar's urgency
// sub-score (nil falls back to 0.3) — not from the coarse urgency label,
// whose >30-day bucket collapses 31 days and 300 days alike.
func urgencyScore(daysRemaining *int) float64 {
	if daysRemaining == nil {
		return 0.3
	}
	switch d := *daysRemaining; {
	case d < 0:
		return 0
	case d <= 1:
		return 1.0
	case d <= 7:
		return 0.9
	case d <= 30:
		return 0.7
	case d <= 90:
		return 0.4
	default:
		return 0.1
	}
}

var negationTokens = []string{"not", "didn't", "won't", "never", "denies", "rejects"}

// determineSide infers YES/NO from a shallow negation check, per SPEC_FULL
// §4.6's explicitly shallow side inference (genuine sentiment analysis is
// deferred by design, not a gap — see DESIGN.md Open Question 2).
func determineSide(content string) string {
	lower := strings.ToLower(content)
	for _, token := range negationTokens {
		if strings.Contains(lower, token) {
			return "NO"
		}
	}
	return "YES"
}
