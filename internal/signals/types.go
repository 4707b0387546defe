package signals

import "time"

// Signal is one emitted snipe signal, published to Redis pub/sub, appended
// to its market's recency list, and durably logged.
type Signal struct {
	ID        string
	Type      string // CRITICAL_SNIPE, SMART_MONEY, LISTENER_MATCH, SPIKE, ...
	MarketID  string
	Side      string
	Magnitude float64
	Timestamp time.Time
	Metadata  map[string]any
}
