// Package smartmoney detects coordinated entries by high-graded wallets:
// when several grade-A/B wallets enter the same side of the same market
// within a short window, it fires a SMART_MONEY signal.
package smartmoney

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	minWallets          = 3
	timeWindow          = 30 * time.Second
	minCumulativeSize   = 500.0
	ringCapacity        = 100
	defaultGCAge        = 300 * time.Second
)

// WalletGrader looks up a wallet's letter grade.
type WalletGrader interface {
	GetWalletGrade(ctx context.Context, wallet string) (string, error)
}

// OutboundSignaler is the narrow interface the Tracker uses to publish a
// SMART_MONEY signal.
type OutboundSignaler interface {
	Emit(ctx context.Context, signalType, marketID, side string, magnitude float64, metadata map[string]any) error
}

// entry is one order event retained in a market's ring buffer.
type entry struct {
	wallet string
	grade  string
	side   string
	size   float64
	at     time.Time
}

var gradeScore = map[string]float64{"A": 1.0, "B": 0.75, "C": 0.5, "D": 0.25}

// ring is a per-market, mutex-guarded fixed-capacity buffer of the last
// ringCapacity order events — the Go shape of the source's
// deque(maxlen=100).
type ring struct {
	mu      sync.Mutex
	entries []entry
}

func (r *ring) append(e entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > ringCapacity {
		r.entries = r.entries[len(r.entries)-ringCapacity:]
	}
}

func (r *ring) snapshot() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *ring) gc(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0:0]
	for _, e := range r.entries {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return len(r.entries) == 0
}

// Tracker evaluates a 30s sliding window per market, per side, firing a
// SMART_MONEY signal when at least 3 distinct grade-A/B wallets accumulate
// >= $500 cumulative size on the same side.
type Tracker struct {
	grader   WalletGrader
	signaler OutboundSignaler
	log      *zap.Logger

	mu      sync.Mutex
	rings   map[string]*ring
	active  map[string]bool
}

// New builds a Tracker.
func New(grader WalletGrader, signaler OutboundSignaler, log *zap.Logger) *Tracker {
	return &Tracker{
		grader:   grader,
		signaler: signaler,
		log:      log,
		rings:    make(map[string]*ring),
		active:   make(map[string]bool),
	}
}

// StartTracking marks a market as actively tracked.
func (t *Tracker) StartTracking(market string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[market] = true
	if _, ok := t.rings[market]; !ok {
		t.rings[market] = &ring{}
	}
}

// StopTracking stops tracking a market and clears its ring.
func (t *Tracker) StopTracking(market string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, market)
	delete(t.rings, market)
}

func (t *Tracker) ringFor(market string) *ring {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rings[market]
	if !ok {
		r = &ring{}
		t.rings[market] = r
	}
	return r
}

// TrackOrder records an order event and re-evaluates the sliding window for
// both sides of market. Orders from wallets not graded A or B are dropped.
func (t *Tracker) TrackOrder(ctx context.Context, market, wallet, side string, size float64) error {
	grade, err := t.grader.GetWalletGrade(ctx, wallet)
	if err != nil {
		t.log.Warn("smartmoney: grade lookup failed", zap.String("wallet", wallet), zap.Error(err))
		return nil
	}
	if grade != "A" && grade != "B" {
		return nil
	}

	r := t.ringFor(market)
	r.append(entry{wallet: wallet, grade: grade, side: side, size: size, at: time.Now()})

	t.evaluate(ctx, market, r, "YES")
	t.evaluate(ctx, market, r, "NO")
	return nil
}

func (t *Tracker) evaluate(ctx context.Context, market string, r *ring, side string) {
	cutoff := time.Now().Add(-timeWindow)

	byWallet := make(map[string][]entry)
	var totalSize float64
	var gradeSum float64
	var gradeCount int

	for _, e := range r.snapshot() {
		if e.side != side || e.at.Before(cutoff) {
			continue
		}
		byWallet[e.wallet] = append(byWallet[e.wallet], e)
		totalSize += e.size
		gradeSum += gradeScore[e.grade]
		gradeCount++
	}

	if len(byWallet) < minWallets || totalSize < minCumulativeSize {
		return
	}

	avgGrade := 0.0
	if gradeCount > 0 {
		avgGrade = gradeSum / float64(gradeCount)
	}

	magnitude := minFloat(1.0, (float64(len(byWallet))/10)*0.7+(totalSize/5000)*0.3) * avgGrade

	if t.signaler == nil {
		return
	}

	walletDetails := make([]string, 0, len(byWallet))
	for w := range byWallet {
		walletDetails = append(walletDetails, w)
	}

	if err := t.signaler.Emit(ctx, "SMART_MONEY", market, side, magnitude, map[string]any{
		"wallets":     walletDetails,
		"total_size":  totalSize,
		"num_wallets": len(byWallet),
	}); err != nil {
		t.log.Warn("smartmoney: failed to emit signal", zap.String("market_id", market), zap.Error(err))
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// GC drops entries older than age (default 300s) across every tracked
// market. A market left with no entries is removed unless it is actively
// tracked via StartTracking.
func (t *Tracker) GC(age time.Duration) {
	if age <= 0 {
		age = defaultGCAge
	}
	cutoff := time.Now().Add(-age)

	t.mu.Lock()
	markets := make([]string, 0, len(t.rings))
	for m := range t.rings {
		markets = append(markets, m)
	}
	t.mu.Unlock()

	for _, m := range markets {
		r := t.ringFor(m)
		if empty := r.gc(cutoff); empty {
			t.mu.Lock()
			if !t.active[m] {
				delete(t.rings, m)
			}
			t.mu.Unlock()
		}
	}
}
