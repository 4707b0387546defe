// Package store is the durable Postgres layer: markets, logs, paper
// trades, favorites, tracked wallets, wallet scores, and signal records.
// DDL/migrations are out of scope; callers provision the schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dantezy/snipe-engine/internal/signals"
	"github.com/dantezy/snipe-engine/internal/walletscore"
)

// Store wraps a pooled Postgres connection via sqlx.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// New opens a connection pool against dsn and verifies it with a ping.
func New(dsn string, log *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	log.Info("store: connected to postgres")
	return &Store{db: db, log: log}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Health checks the connection is alive within a short timeout, for use in
// a readiness probe.
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: health check failed: %w", err)
	}
	return nil
}

// LogEntry is one row in the module/level/message/timestamp log table, per
// SPEC_FULL §6's persisted-state list.
type LogEntry struct {
	Module    string `db:"module"`
	Level     string `db:"level"`
	Message   string `db:"message"`
	Timestamp time.Time `db:"timestamp"`
}

// WriteLog persists one log entry. Called on a best-effort basis: callers
// log-and-continue on error rather than propagate, per SPEC_FULL §7's
// "side-channel failures never block primary flow" policy.
func (s *Store) WriteLog(ctx context.Context, module, level, message string) error {
	const q = `INSERT INTO logs (module, level, message, timestamp) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, q, module, level, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: write log: %w", err)
	}
	return nil
}

// paperTradeRow mirrors the PaperTrade data-model entry.
type paperTradeRow struct {
	MarketID      string          `db:"market_id"`
	Side          string          `db:"side"`
	Size          float64         `db:"size"`
	Confidence    float64         `db:"confidence"`
	SignalQuality float64         `db:"signal_quality"`
	MarketQuality float64         `db:"market_quality"`
	Status        string          `db:"status"`
	Outcome       sql.NullString  `db:"outcome"`
	Payout        sql.NullFloat64 `db:"payout"`
	Profit        sql.NullFloat64 `db:"profit"`
	OpenedAt      time.Time       `db:"opened_at"`
	ClosedAt      sql.NullTime    `db:"closed_at"`
}

// RecordPaperTrade upserts a paper trade's current state.
func (s *Store) RecordPaperTrade(ctx context.Context, marketID, side string, size, confidence, signalQuality, marketQuality float64, status string) error {
	const q = `
		INSERT INTO paper_trades (market_id, side, size, confidence, signal_quality, market_quality, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market_id) DO UPDATE SET status = EXCLUDED.status`
	_, err := s.db.ExecContext(ctx, q, marketID, side, size, confidence, signalQuality, marketQuality, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record paper trade: %w", err)
	}
	return nil
}

// favoriteRow mirrors the Favorite data-model entry.
type favoriteRow struct {
	MarketID    string `db:"market_id"`
	MarketTitle string `db:"market_title"`
	MarketURL   string `db:"market_url"`
}

// Favorites returns the set of favorited market IDs, consumed by both the
// Radar (priority_boost) and Listener (favorite matching rule).
func (s *Store) Favorites(ctx context.Context) (map[string]bool, error) {
	var rows []favoriteRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT market_id, market_title, market_url FROM favorites`); err != nil {
		return nil, fmt.Errorf("store: favorites: %w", err)
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.MarketID] = true
	}
	return out, nil
}

// SetFavorite marks or unmarks a market as a favorite.
func (s *Store) SetFavorite(ctx context.Context, marketID, title, url string, favorite bool) error {
	if !favorite {
		_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE market_id = $1`, marketID)
		if err != nil {
			return fmt.Errorf("store: unset favorite: %w", err)
		}
		return nil
	}
	const q = `
		INSERT INTO favorites (market_id, market_title, market_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (market_id) DO UPDATE SET market_title = EXCLUDED.market_title, market_url = EXCLUDED.market_url`
	_, err := s.db.ExecContext(ctx, q, marketID, title, url)
	if err != nil {
		return fmt.Errorf("store: set favorite: %w", err)
	}
	return nil
}

// GlobalKeywords returns the operator-configured high-value keyword list
// the Listener falls back to beyond per-market trigger keywords, read from
// the comma-separated listener_keywords setting. A missing row yields no
// keywords.
func (s *Store) GlobalKeywords(ctx context.Context) ([]string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = 'listener_keywords'`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: global keywords: %w", err)
	}
	var kws []string
	for _, kw := range strings.Split(value, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	return kws, nil
}

// walletScoreRow mirrors the wallet_scores table.
type walletScoreRow struct {
	Wallet       string    `db:"wallet_address"`
	Grade        string    `db:"score_grade"`
	SuccessRate  float64   `db:"success_rate"`
	RiskAdjROI   float64   `db:"roi_adjusted"`
	TimingScore  float64   `db:"timing_score"`
	FinalScore   float64   `db:"final_score"`
	TotalMarkets int       `db:"total_markets"`
	TotalVolume  float64   `db:"total_volume"`
	UpdatedAt    time.Time `db:"last_updated"`
}

// UpsertWalletScore implements walletscore.Store.
func (s *Store) UpsertWalletScore(ctx context.Context, rec walletscore.Record) error {
	const q = `
		INSERT INTO wallet_scores (wallet_address, score_grade, success_rate, roi_adjusted, timing_score, final_score, total_markets, total_volume, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (wallet_address) DO UPDATE SET
			score_grade = EXCLUDED.score_grade,
			success_rate = EXCLUDED.success_rate,
			roi_adjusted = EXCLUDED.roi_adjusted,
			timing_score = EXCLUDED.timing_score,
			final_score = EXCLUDED.final_score,
			total_markets = EXCLUDED.total_markets,
			total_volume = EXCLUDED.total_volume,
			last_updated = EXCLUDED.last_updated`
	_, err := s.db.ExecContext(ctx, q,
		rec.Wallet, string(rec.Grade), rec.Breakdown.SuccessRate, rec.Breakdown.RiskAdjROI,
		rec.Breakdown.TimingScore, rec.Breakdown.FinalScore, rec.Breakdown.TotalMarkets,
		rec.Breakdown.TotalVolume, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert wallet score: %w", err)
	}
	return nil
}

// GetWalletScore implements walletscore.Store.
func (s *Store) GetWalletScore(ctx context.Context, wallet string) (walletscore.Record, bool, error) {
	var row walletScoreRow
	err := s.db.GetContext(ctx, &row, `SELECT wallet_address, score_grade, success_rate, roi_adjusted, timing_score, final_score, total_markets, total_volume, last_updated FROM wallet_scores WHERE wallet_address = $1`, wallet)
	if err == sql.ErrNoRows {
		return walletscore.Record{}, false, nil
	}
	if err != nil {
		return walletscore.Record{}, false, fmt.Errorf("store: get wallet score: %w", err)
	}
	return walletscore.Record{
		Wallet: row.Wallet,
		Grade:  walletscore.Grade(row.Grade),
		Breakdown: walletscore.Breakdown{
			SuccessRate:  row.SuccessRate,
			RiskAdjROI:   row.RiskAdjROI,
			TimingScore:  row.TimingScore,
			FinalScore:   row.FinalScore,
			TotalMarkets: row.TotalMarkets,
			TotalVolume:  row.TotalVolume,
		},
		UpdatedAt: row.UpdatedAt,
	}, true, nil
}

// LogSignal implements signals.Store, recording a signal durably.
func (s *Store) LogSignal(ctx context.Context, sig signals.Signal) error {
	const q = `
		INSERT INTO signal_records (id, signal_type, market_id, side, magnitude, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, q, sig.ID, sig.Type, sig.MarketID, sig.Side, sig.Magnitude, sig.Timestamp)
	if err != nil {
		return fmt.Errorf("store: log signal: %w", err)
	}
	return nil
}

// TrackedWallet is a wallet the Smart-Money Tracker considers, seeded by an
// operator or by observed on-chain activity.
type TrackedWallet struct {
	Wallet    string    `db:"wallet_address"`
	AddedAt   time.Time `db:"added_at"`
}

// TrackedWallets returns every wallet the operator has flagged for
// tracking.
func (s *Store) TrackedWallets(ctx context.Context) ([]TrackedWallet, error) {
	var rows []TrackedWallet
	if err := s.db.SelectContext(ctx, &rows, `SELECT wallet_address, added_at FROM tracked_wallets`); err != nil {
		return nil, fmt.Errorf("store: tracked wallets: %w", err)
	}
	return rows, nil
}
