package chainfeed

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestFeed() *Feed {
	return New("wss://example.invalid/feed", zap.NewNop())
}

func TestHandleMessageEnqueuesValidFill(t *testing.T) {
	f := newTestFeed()
	f.handleMessage([]byte(`{"event_type":"fill","market":"mkt-1","maker":"0xabc","side":"YES","size":"12.5","price":"0.6"}`))

	select {
	case fill := <-f.Fills():
		if fill.MarketID != "mkt-1" || fill.Wallet != "0xabc" || fill.Side != "YES" || fill.Size != 12.5 {
			t.Errorf("fill = %+v, unexpected contents", fill)
		}
	default:
		t.Fatal("expected a fill to be enqueued")
	}
}

func TestHandleMessageIgnoresNonFillEvents(t *testing.T) {
	f := newTestFeed()
	f.handleMessage([]byte(`{"event_type":"book","market":"mkt-1"}`))

	select {
	case fill := <-f.Fills():
		t.Fatalf("expected no fill enqueued, got %+v", fill)
	default:
	}
}

func TestHandleMessageIgnoresMalformedJSON(t *testing.T) {
	f := newTestFeed()
	f.handleMessage([]byte(`not json`))

	select {
	case fill := <-f.Fills():
		t.Fatalf("expected no fill enqueued for malformed input, got %+v", fill)
	default:
	}
}

func TestHandleMessageIgnoresUnparsableSize(t *testing.T) {
	f := newTestFeed()
	f.handleMessage([]byte(`{"event_type":"fill","market":"mkt-1","maker":"0xabc","side":"YES","size":"not-a-number","price":"0.6"}`))

	select {
	case fill := <-f.Fills():
		t.Fatalf("expected no fill enqueued for unparsable size, got %+v", fill)
	default:
	}
}

// TestHandleMessageDropsOldestWhenQueueFull pins the drop-oldest-not-block
// behavior: once the bounded channel fills, the newest fill still lands,
// evicting the oldest one.
func TestHandleMessageDropsOldestWhenQueueFull(t *testing.T) {
	f := newTestFeed()
	for i := 0; i < queueCapacity; i++ {
		f.handleMessage([]byte(`{"event_type":"fill","market":"mkt-old","maker":"0xabc","side":"YES","size":"1","price":"0.5"}`))
	}
	f.handleMessage([]byte(`{"event_type":"fill","market":"mkt-new","maker":"0xdef","side":"NO","size":"2","price":"0.4"}`))

	var last Fill
	count := 0
	for {
		select {
		case fill := <-f.Fills():
			last = fill
			count++
			continue
		default:
		}
		break
	}
	if count != queueCapacity {
		t.Fatalf("drained %d fills, want %d (queue stayed bounded)", count, queueCapacity)
	}
	if last.MarketID != "mkt-new" {
		t.Errorf("last fill = %+v, want the newest fill to have survived", last)
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{1 * time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{16 * time.Second, 30 * time.Second}, // would be 32s, capped at 30s
		{30 * time.Second, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := nextBackoff(tc.in); got != tc.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
