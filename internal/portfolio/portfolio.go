// Package portfolio tracks a single virtual trading account: available
// balance, open positions, and realized P&L. There is no real on-chain
// settlement — every position is a paper trade.
package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInsufficientBalance is returned when a trade cannot be afforded.
var ErrInsufficientBalance = errors.New("portfolio: insufficient balance")

// ErrPositionNotFound is returned by ClosePosition for an unknown market.
var ErrPositionNotFound = errors.New("portfolio: position not found")

// Outcome is the settlement result of a closed position.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Status is a position's lifecycle stage. Transitions are one-directional:
// OPEN -> (CLOSED | EXPIRED), never reversed.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusExpired Status = "EXPIRED"
)

// Position is one paper trade against the virtual account.
type Position struct {
	MarketID   string
	Side       string
	Size       decimal.Decimal
	Confidence float64
	Status     Status
	Outcome    Outcome
	Payout     decimal.Decimal
	Profit     decimal.Decimal
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Stats is a point-in-time snapshot of the account.
type Stats struct {
	InitialCapital    decimal.Decimal
	AvailableBalance  decimal.Decimal
	TotalValue        decimal.Decimal
	OpenPositions     int
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	WinRatePct        float64
	TotalProfit       decimal.Decimal
	ROIPct            float64
}

// Sizing controls position-size computation.
type Sizing struct {
	BaseBetPct float64
	MaxBetPct  float64
	MinBet     decimal.Decimal
}

// Portfolio is a single-writer virtual trading account; every exported
// method is safe for concurrent use, serialized on one mutex per
// SPEC_FULL §5 ("all Executor calls are serialized on it").
type Portfolio struct {
	mu sync.Mutex
	log *zap.Logger

	sizing Sizing

	initialCapital   decimal.Decimal
	availableBalance decimal.Decimal
	positions        map[string]*Position

	totalTrades   int
	winningTrades int
	losingTrades  int
	totalProfit   decimal.Decimal
}

// New builds a Portfolio seeded with initialCapital.
func New(initialCapital float64, sizing Sizing, log *zap.Logger) *Portfolio {
	capital := decimal.NewFromFloat(initialCapital)
	return &Portfolio{
		log:              log,
		sizing:           sizing,
		initialCapital:   capital,
		availableBalance: capital,
		positions:        make(map[string]*Position),
		totalProfit:      decimal.Zero,
	}
}

// Balance returns the current available balance.
func (p *Portfolio) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableBalance
}

// CanTrade reports whether size can be afforded from the available
// balance.
func (p *Portfolio) CanTrade(size decimal.Decimal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableBalance.GreaterThanOrEqual(size)
}

// CalculatePositionSize implements SPEC_FULL §4.6's sizing formula:
// base = balance * base_pct; mult = max(1, confidence/0.5);
// size = clamp(base*mult, min_bet, balance*max_pct).
func (p *Portfolio) CalculatePositionSize(confidence float64) decimal.Decimal {
	p.mu.Lock()
	balance := p.availableBalance
	p.mu.Unlock()

	base := balance.Mul(decimal.NewFromFloat(p.sizing.BaseBetPct))

	mult := 1.0
	if confidence > 0.5 {
		mult = confidence / 0.5
	}
	adjusted := base.Mul(decimal.NewFromFloat(mult))

	maxBet := balance.Mul(decimal.NewFromFloat(p.sizing.MaxBetPct))
	minBet := p.sizing.MinBet

	size := adjusted
	if size.LessThan(minBet) {
		size = minBet
	}
	if size.GreaterThan(maxBet) {
		size = maxBet
	}
	return size.Round(2)
}

// OpenPosition reserves size from the available balance and records a new
// OPEN position for marketID. A market already holding an open position is
// replaced, matching the source's dict-by-market-id semantics.
func (p *Portfolio) OpenPosition(marketID, side string, size decimal.Decimal, confidence float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.availableBalance.LessThan(size) {
		return fmt.Errorf("%w: balance=%s size=%s", ErrInsufficientBalance, p.availableBalance, size)
	}

	p.availableBalance = p.availableBalance.Sub(size)
	p.positions[marketID] = &Position{
		MarketID:   marketID,
		Side:       side,
		Size:       size,
		Confidence: confidence,
		Status:     StatusOpen,
		OpenedAt:   time.Now(),
	}
	p.totalTrades++

	p.log.Info("portfolio: position opened",
		zap.String("market_id", marketID), zap.String("side", side), zap.String("size", size.String()))
	return nil
}

// ClosePosition settles marketID's open position. If payout is nil, the
// default (2x size on WIN, 0 on LOSS) is used, matching the source.
func (p *Portfolio) ClosePosition(marketID string, outcome Outcome, payout *decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[marketID]
	if !ok || pos.Status != StatusOpen {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, marketID)
	}

	var finalPayout decimal.Decimal
	if payout != nil {
		finalPayout = *payout
	} else if outcome == OutcomeWin {
		finalPayout = pos.Size.Mul(decimal.NewFromInt(2))
	} else {
		finalPayout = decimal.Zero
	}

	p.availableBalance = p.availableBalance.Add(finalPayout)
	profit := finalPayout.Sub(pos.Size)
	p.totalProfit = p.totalProfit.Add(profit)

	if outcome == OutcomeWin {
		p.winningTrades++
	} else {
		p.losingTrades++
	}

	pos.Status = StatusClosed
	pos.Outcome = outcome
	pos.Payout = finalPayout
	pos.Profit = profit
	pos.ClosedAt = time.Now()

	p.log.Info("portfolio: position closed",
		zap.String("market_id", marketID), zap.String("outcome", string(outcome)), zap.String("profit", profit.String()))
	return nil
}

// ExpirePosition marks an open position EXPIRED without settling P&L —
// used when a market resolves out-of-band with no recorded outcome.
func (p *Portfolio) ExpirePosition(marketID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[marketID]
	if !ok || pos.Status != StatusOpen {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, marketID)
	}
	pos.Status = StatusExpired
	pos.ClosedAt = time.Now()
	return nil
}

// Stats reports the current account snapshot.
func (p *Portfolio) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	openValue := decimal.Zero
	openCount := 0
	for _, pos := range p.positions {
		if pos.Status == StatusOpen {
			openValue = openValue.Add(pos.Size)
			openCount++
		}
	}
	totalValue := p.availableBalance.Add(openValue)

	winRate := 0.0
	if p.totalTrades > 0 {
		winRate = float64(p.winningTrades) / float64(p.totalTrades) * 100
	}

	roi := 0.0
	if !p.initialCapital.IsZero() {
		roi, _ = totalValue.Sub(p.initialCapital).Div(p.initialCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	return Stats{
		InitialCapital:   p.initialCapital,
		AvailableBalance: p.availableBalance,
		TotalValue:       totalValue,
		OpenPositions:    openCount,
		TotalTrades:      p.totalTrades,
		WinningTrades:    p.winningTrades,
		LosingTrades:     p.losingTrades,
		WinRatePct:       winRate,
		TotalProfit:      p.totalProfit,
		ROIPct:           roi,
	}
}
