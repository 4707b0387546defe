// Package chainfeed streams on-chain order fills over a WebSocket and hands
// each one to the Smart-Money Tracker. Reconnect/backoff/keepalive shape
// adapted from the teacher's CLOB order-book client.
package chainfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2

	pingInterval = 30 * time.Second
	pongTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	// queueCapacity bounds the channel between the read loop and the
	// consumer; once full, the oldest queued fill is dropped so a slow
	// consumer never blocks the socket read.
	queueCapacity = 256
)

// Fill is one on-chain order fill event.
type Fill struct {
	MarketID string
	Wallet   string
	Side     string
	Size     float64
	Price    float64
}

// wireFill is the inbound wire shape.
type wireFill struct {
	EventType string `json:"event_type"`
	Market    string `json:"market"`
	Maker     string `json:"maker"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
}

// Feed is a reconnecting WebSocket client streaming order fills.
type Feed struct {
	url string
	log *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	fills chan Fill
	done  chan struct{}
}

// New builds a Feed against url (the on-chain order-fill stream endpoint).
func New(url string, log *zap.Logger) *Feed {
	return &Feed{
		url:   url,
		log:   log,
		fills: make(chan Fill, queueCapacity),
		done:  make(chan struct{}),
	}
}

// Fills returns the channel of received fills. The channel is never closed;
// once Run has returned, no further fills arrive on it.
func (f *Feed) Fills() <-chan Fill {
	return f.fills
}

// Run connects and reads until ctx is cancelled or Close is called,
// reconnecting with exponential backoff on every failure. REST-backed
// components continue to function while the feed is down; this stream is
// an enrichment, not a dependency, matching the teacher's "websocket
// optional" posture.
func (f *Feed) Run(ctx context.Context) error {
	backoff := initialBackoff
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := f.connect(); err != nil {
			failures++
			if failures == 1 {
				f.log.Warn("chainfeed: connect failed", zap.Error(err))
			}
			if !f.sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		failures = 0
		backoff = initialBackoff

		err := f.readLoop(ctx)
		f.closeConn()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.log.Warn("chainfeed: disconnected", zap.Error(err))
		}

		if !f.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

// Close stops the feed and closes the underlying connection.
func (f *Feed) Close() error {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return f.closeConn()
}

func (f *Feed) connect() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn != nil {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		return fmt.Errorf("chainfeed: dial: %w", err)
	}
	f.conn = conn
	return nil
}

func (f *Feed) closeConn() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}

func (f *Feed) readLoop(ctx context.Context) error {
	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()
	if conn == nil {
		return errors.New("chainfeed: not connected")
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout + pingInterval))
	})

	pingDone := make(chan struct{})
	go f.pingLoop(ctx, conn, pingDone)
	defer close(pingDone)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(pongTimeout + pingInterval)); err != nil {
			return fmt.Errorf("chainfeed: set read deadline: %w", err)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("chainfeed: read: %w", err)
		}
		f.handleMessage(message)
	}
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-f.done:
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) handleMessage(data []byte) {
	var wf wireFill
	if err := json.Unmarshal(data, &wf); err != nil {
		f.log.Warn("chainfeed: malformed message", zap.Error(err))
		return
	}
	if wf.EventType != "fill" || wf.Market == "" {
		return
	}

	size, err := strconv.ParseFloat(wf.Size, 64)
	if err != nil {
		return
	}
	price, _ := strconv.ParseFloat(wf.Price, 64)

	fill := Fill{
		MarketID: wf.Market,
		Wallet:   wf.Maker,
		Side:     wf.Side,
		Size:     size,
		Price:    price,
	}

	select {
	case f.fills <- fill:
	default:
		// Queue full: drop the oldest to make room rather than block the
		// socket read, then enqueue the new fill.
		select {
		case <-f.fills:
		default:
		}
		select {
		case f.fills <- fill:
		default:
		}
	}
}

func (f *Feed) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-f.done:
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	next := d * backoffFactor
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
