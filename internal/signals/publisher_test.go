package signals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeBroker struct {
	mu         sync.Mutex
	published  [][]byte
	lists      map[string][][]byte
	publishErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{lists: make(map[string][][]byte)}
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBroker) LPush(ctx context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append([][]byte{payload}, f.lists[key]...)
	return nil
}

func (f *fakeBroker) LTrim(ctx context.Context, key string, start, stop int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if int64(len(f.lists[key])) > stop+1 {
		f.lists[key] = f.lists[key][:stop+1]
	}
	return nil
}

func (f *fakeBroker) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.lists[key]
	if stop >= int64(len(entries)) {
		stop = int64(len(entries)) - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, entries[start:stop+1])
	return out, nil
}

type fakeStore struct {
	done chan Signal
}

func (f *fakeStore) LogSignal(ctx context.Context, s Signal) error {
	f.done <- s
	return nil
}

type fakeNotifier struct {
	done chan Signal
	err  error
}

func (f *fakeNotifier) NotifyCriticalSnipe(ctx context.Context, s Signal) error {
	if f.err != nil {
		return f.err
	}
	f.done <- s
	return nil
}

func waitSignal(t *testing.T, ch chan Signal) Signal {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async signal delivery")
		return Signal{}
	}
}

func TestEmitPublishesAndAppendsRecencyList(t *testing.T) {
	broker := newFakeBroker()
	p := New(broker, nil, nil, zap.NewNop())

	if err := p.Emit(context.Background(), "LISTENER_MATCH", "mkt-1", "YES", 0.7, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if len(broker.published) != 1 {
		t.Fatalf("published count = %d, want 1", len(broker.published))
	}

	recent, err := p.Recent(context.Background(), "mkt-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].MarketID != "mkt-1" {
		t.Errorf("Recent = %+v, want one signal for mkt-1", recent)
	}
}

func TestEmitPropagatesBrokerPublishError(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("redis down")
	p := New(broker, nil, nil, zap.NewNop())

	if err := p.Emit(context.Background(), "SMART_MONEY", "mkt-1", "YES", 0.5, nil); err == nil {
		t.Fatal("expected Emit to propagate a broker publish error")
	}
}

func TestEmitLogsToStoreAsynchronously(t *testing.T) {
	broker := newFakeBroker()
	store := &fakeStore{done: make(chan Signal, 1)}
	p := New(broker, store, nil, zap.NewNop())

	if err := p.Emit(context.Background(), "SPIKE", "mkt-2", "NO", 0.4, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	logged := waitSignal(t, store.done)
	if logged.MarketID != "mkt-2" || logged.Type != "SPIKE" {
		t.Errorf("logged signal = %+v, want mkt-2/SPIKE", logged)
	}
}

func TestEmitNotifiesOnlyForCriticalSnipe(t *testing.T) {
	broker := newFakeBroker()
	notifier := &fakeNotifier{done: make(chan Signal, 1)}
	p := New(broker, nil, notifier, zap.NewNop())

	if err := p.Emit(context.Background(), "LISTENER_MATCH", "mkt-3", "YES", 0.5, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	select {
	case s := <-notifier.done:
		t.Fatalf("non-critical signal should not notify, got %+v", s)
	case <-time.After(100 * time.Millisecond):
	}

	if err := p.Emit(context.Background(), "CRITICAL_SNIPE", "mkt-4", "YES", 0.95, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	notified := waitSignal(t, notifier.done)
	if notified.MarketID != "mkt-4" {
		t.Errorf("notified signal = %+v, want mkt-4", notified)
	}
}

func TestRecentNoBrokerReturnsEmpty(t *testing.T) {
	p := New(nil, nil, nil, zap.NewNop())
	recent, err := p.Recent(context.Background(), "mkt-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent != nil {
		t.Errorf("Recent = %v, want nil with no broker", recent)
	}
}
