// Package signals distributes snipe signals: Redis pub/sub for subscribers,
// a bounded per-market recency list, durable logging, and a Telegram alert
// for CRITICAL_SNIPE. It is the single implementation of the
// OutboundSignaler interface shape the Radar, Listener, and Smart-Money
// Tracker each declare independently.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pubsubChannel  = "snipe_signals"
	recentListCap  = 100
)

// Broker is the narrow Redis surface the Publisher needs: pub/sub publish
// and the bounded per-market recency list.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	LPush(ctx context.Context, key string, payload []byte) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Store durably records every emitted signal. Logging failures never block
// or fail signal emission.
type Store interface {
	LogSignal(ctx context.Context, s Signal) error
}

// Notifier sends the CRITICAL_SNIPE alert out of band.
type Notifier interface {
	NotifyCriticalSnipe(ctx context.Context, s Signal) error
}

// Publisher emits signals to every configured sink. Any sink may be nil, in
// which case that leg of emission is skipped.
type Publisher struct {
	broker   Broker
	store    Store
	notifier Notifier
	log      *zap.Logger
}

// New builds a Publisher.
func New(broker Broker, store Store, notifier Notifier, log *zap.Logger) *Publisher {
	return &Publisher{broker: broker, store: store, notifier: notifier, log: log}
}

// Emit implements the OutboundSignaler shape shared by radar, listener, and
// smartmoney: publish to pub/sub, append to the market's recency list,
// persist durably, and — for CRITICAL_SNIPE — dispatch an alert. Durable
// logging and alerting happen on detached goroutines so a slow store or
// Telegram API never adds latency to the pub/sub publish the spec targets
// at under 50ms.
func (p *Publisher) Emit(ctx context.Context, signalType, marketID, side string, magnitude float64, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	sig := Signal{
		ID:        uuid.NewString(),
		Type:      signalType,
		MarketID:  marketID,
		Side:      side,
		Magnitude: magnitude,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("signals: marshal: %w", err)
	}

	if p.broker != nil {
		start := time.Now()
		if err := p.broker.Publish(ctx, pubsubChannel, payload); err != nil {
			p.log.Error("signals: publish failed", zap.String("signal_type", signalType), zap.Error(err))
			return fmt.Errorf("signals: publish: %w", err)
		}
		p.log.Info("signals: published",
			zap.String("signal_type", signalType),
			zap.String("market_id", truncateID(marketID)),
			zap.String("side", side),
			zap.Float64("magnitude", magnitude),
			zap.Duration("latency", time.Since(start)))

		key := "signals:" + marketID
		if err := p.broker.LPush(ctx, key, payload); err != nil {
			p.log.Warn("signals: recency list push failed", zap.Error(err))
		} else if err := p.broker.LTrim(ctx, key, 0, recentListCap-1); err != nil {
			p.log.Warn("signals: recency list trim failed", zap.Error(err))
		}
	}

	if p.store != nil {
		go func() {
			logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.store.LogSignal(logCtx, sig); err != nil {
				p.log.Warn("signals: failed to log signal to store", zap.Error(err))
			}
		}()
	}

	if signalType == "CRITICAL_SNIPE" && p.notifier != nil {
		go func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := p.notifier.NotifyCriticalSnipe(alertCtx, sig); err != nil {
				p.log.Warn("signals: failed to send critical snipe alert", zap.Error(err))
			}
		}()
	}

	return nil
}

// Recent returns up to limit most-recently emitted signals for marketID,
// newest first.
func (p *Publisher) Recent(ctx context.Context, marketID string, limit int) ([]Signal, error) {
	if p.broker == nil {
		return nil, nil
	}
	raw, err := p.broker.LRange(ctx, "signals:"+marketID, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("signals: recent: %w", err)
	}
	out := make([]Signal, 0, len(raw))
	for _, b := range raw {
		var s Signal
		if err := json.Unmarshal(b, &s); err != nil {
			p.log.Warn("signals: failed to decode recent signal", zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
