// Package walletscore grades wallets A-D from their historical trade
// record: success rate, risk-adjusted ROI, and entry timing.
package walletscore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Grade is a wallet's letter score. Higher grades indicate better sniping
// potential and are the only grades the Smart-Money Tracker trusts.
type Grade string

const (
	GradeA       Grade = "A"
	GradeB       Grade = "B"
	GradeC       Grade = "C"
	GradeD       Grade = "D"
	GradeUnknown Grade = "UNKNOWN"
)

// Trade is one historical trade used to derive a wallet's grade.
type Trade struct {
	Outcome        string // "WIN" or "LOSS"
	Profit         float64
	BetSize        float64
	TimeToMove     float64 // seconds until a significant price move, 0 if unknown
	MarketDuration float64 // seconds, 0 if unknown
	HasTiming      bool
}

// Breakdown is the scoring detail behind a Grade.
type Breakdown struct {
	SuccessRate   float64
	RiskAdjROI    float64
	TimingScore   float64
	FinalScore    float64
	TotalMarkets  int
	TotalVolume   float64
}

// Record is a wallet's persisted score, written to the store and cached in
// Redis.
type Record struct {
	Wallet     string
	Grade      Grade
	Breakdown  Breakdown
	UpdatedAt  time.Time
}

// Cache is the narrow Redis surface the Scorer uses to speed up lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store persists a wallet's score record durably.
type Store interface {
	UpsertWalletScore(ctx context.Context, rec Record) error
	GetWalletScore(ctx context.Context, wallet string) (Record, bool, error)
}

const cacheTTL = time.Hour

func cacheKey(wallet string) string {
	return "wallet_score:" + wallet
}

// Scorer computes and persists wallet grades.
type Scorer struct {
	cache Cache
	store Store
	log   *zap.Logger
}

// New builds a Scorer. cache and store may each be nil, in which case that
// tier is skipped.
func New(cache Cache, store Store, log *zap.Logger) *Scorer {
	return &Scorer{cache: cache, store: store, log: log}
}

// CalculateScore computes a wallet's grade from its historical trades, per
// SPEC_FULL §4.4's weighted formula (success_rate 0.4, risk_adjusted_roi
// 0.3, timing_score 0.3).
func CalculateScore(trades []Trade) (Grade, Breakdown) {
	if len(trades) == 0 {
		return GradeD, Breakdown{}
	}

	wins, losses := 0, 0
	var totalProfit, totalInvested float64
	for _, t := range trades {
		switch t.Outcome {
		case "WIN":
			wins++
		case "LOSS":
			losses++
		}
		totalProfit += t.Profit
		totalInvested += abs(t.BetSize)
	}

	totalMarkets := wins + losses
	successRate := 0.0
	if totalMarkets > 0 {
		successRate = float64(wins) / float64(totalMarkets)
	}

	avgBetSize := 1.0
	if len(trades) > 0 {
		avgBetSize = totalInvested / float64(len(trades))
	}

	roi := 0.0
	if totalInvested > 0 {
		roi = totalProfit / totalInvested
	}
	riskAdjROI := roi / (avgBetSize / 1000)
	riskAdjROI = clamp(riskAdjROI, -2.0, 5.0)

	var timingSum, durationSum float64
	timingCount := 0
	for _, t := range trades {
		if !t.HasTiming {
			continue
		}
		timingSum += t.TimeToMove
		durationSum += t.MarketDuration
		timingCount++
	}

	timingScore := 0.5
	if timingCount > 0 && durationSum > 0 {
		avgTiming := timingSum / float64(timingCount)
		avgDuration := durationSum / float64(timingCount)
		timingScore = clamp(1.0-(avgTiming/avgDuration), 0.0, 1.0)
	}

	finalScore := successRate*0.4 +
		(riskAdjROI+1)/6*0.3 +
		timingScore*0.3

	breakdown := Breakdown{
		SuccessRate:  round4(successRate),
		RiskAdjROI:   round4(riskAdjROI),
		TimingScore:  round4(timingScore),
		FinalScore:   round4(finalScore),
		TotalMarkets: totalMarkets,
		TotalVolume:  round2(totalInvested),
	}

	return assignGrade(finalScore), breakdown
}

func assignGrade(score float64) Grade {
	switch {
	case score >= 0.80:
		return GradeA
	case score >= 0.60:
		return GradeB
	case score >= 0.40:
		return GradeC
	default:
		return GradeD
	}
}

// UpdateWalletScore recomputes a wallet's grade, persists it to the store,
// and refreshes the 1h Redis cache entry.
func (s *Scorer) UpdateWalletScore(ctx context.Context, wallet string, trades []Trade) (Record, error) {
	grade, breakdown := CalculateScore(trades)
	rec := Record{Wallet: wallet, Grade: grade, Breakdown: breakdown, UpdatedAt: time.Now()}

	if s.store != nil {
		if err := s.store.UpsertWalletScore(ctx, rec); err != nil {
			return rec, fmt.Errorf("walletscore: persist: %w", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.SetEX(ctx, cacheKey(wallet), string(grade), cacheTTL); err != nil {
			s.log.Warn("walletscore: cache write failed", zap.String("wallet", wallet), zap.Error(err))
		}
	}

	s.log.Info("walletscore: wallet scored",
		zap.String("wallet", truncateWallet(wallet)),
		zap.String("grade", string(grade)),
		zap.Float64("final_score", breakdown.FinalScore))

	return rec, nil
}

// GetWalletGrade implements smartmoney.WalletGrader: cache first, then
// store, falling back to UNKNOWN. A cache hit re-primes nothing; a store
// hit re-primes the cache.
func (s *Scorer) GetWalletGrade(ctx context.Context, wallet string) (string, error) {
	if s.cache != nil {
		if grade, err := s.cache.Get(ctx, cacheKey(wallet)); err == nil && grade != "" {
			return grade, nil
		}
	}

	if s.store == nil {
		return string(GradeUnknown), nil
	}

	rec, found, err := s.store.GetWalletScore(ctx, wallet)
	if err != nil {
		return string(GradeUnknown), fmt.Errorf("walletscore: lookup: %w", err)
	}
	if !found {
		return string(GradeUnknown), nil
	}

	if s.cache != nil {
		if err := s.cache.SetEX(ctx, cacheKey(wallet), string(rec.Grade), cacheTTL); err != nil {
			s.log.Warn("walletscore: cache re-prime failed", zap.String("wallet", wallet), zap.Error(err))
		}
	}
	return string(rec.Grade), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func round4(v float64) float64 {
	return float64(int64(v*10000+sign(v)*0.5)) / 10000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func truncateWallet(w string) string {
	if len(w) <= 8 {
		return w
	}
	return w[:8] + "..."
}
