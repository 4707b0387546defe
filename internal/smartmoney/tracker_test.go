package smartmoney

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeGrader struct {
	grades map[string]string
}

func (f *fakeGrader) GetWalletGrade(ctx context.Context, wallet string) (string, error) {
	return f.grades[wallet], nil
}

type capturingSignaler struct {
	mu    sync.Mutex
	calls []struct {
		marketID  string
		side      string
		magnitude float64
	}
}

func (c *capturingSignaler) Emit(ctx context.Context, signalType, marketID, side string, magnitude float64, metadata map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, struct {
		marketID  string
		side      string
		magnitude float64
	}{marketID, side, magnitude})
	return nil
}

func (c *capturingSignaler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// TestTrackOrderWorkedExample4 matches the base spec's worked example 4:
// 3 distinct grade-A wallets ($200, $200, $200) on the same side within the
// window, average grade 1.0, should fire with magnitude ~0.246.
func TestTrackOrderWorkedExample4(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{
		"w1": "A", "w2": "A", "w3": "A",
	}}
	signaler := &capturingSignaler{}
	tr := New(grader, signaler, zap.NewNop())

	ctx := context.Background()
	_ = tr.TrackOrder(ctx, "mkt-1", "w1", "YES", 200)
	_ = tr.TrackOrder(ctx, "mkt-1", "w2", "YES", 200)
	_ = tr.TrackOrder(ctx, "mkt-1", "w3", "YES", 200)

	if signaler.count() == 0 {
		t.Fatal("expected a SMART_MONEY signal to fire")
	}
	last := signaler.calls[len(signaler.calls)-1]
	if last.marketID != "mkt-1" || last.side != "YES" {
		t.Errorf("signal = %+v, want market mkt-1 side YES", last)
	}
	const want = 0.246
	if diff := last.magnitude - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("magnitude = %v, want ~%v", last.magnitude, want)
	}
}

func TestTrackOrderIgnoresLowGradeWallets(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{
		"w1": "C", "w2": "D", "w3": "C",
	}}
	signaler := &capturingSignaler{}
	tr := New(grader, signaler, zap.NewNop())

	ctx := context.Background()
	_ = tr.TrackOrder(ctx, "mkt-1", "w1", "YES", 1000)
	_ = tr.TrackOrder(ctx, "mkt-1", "w2", "YES", 1000)
	_ = tr.TrackOrder(ctx, "mkt-1", "w3", "YES", 1000)

	if signaler.count() != 0 {
		t.Error("grade C/D wallets should never trigger a smart-money signal")
	}
}

// TestTrackOrderBelowWalletThresholdDoesNotTrigger covers the two-wallet
// non-triggering edge case: even with ample size, fewer than 3 distinct
// wallets on one side must not fire.
func TestTrackOrderBelowWalletThresholdDoesNotTrigger(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{
		"w1": "A", "w2": "B",
	}}
	signaler := &capturingSignaler{}
	tr := New(grader, signaler, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = tr.TrackOrder(ctx, "mkt-1", "w1", "YES", 1000)
		_ = tr.TrackOrder(ctx, "mkt-1", "w2", "YES", 1000)
	}

	if signaler.count() != 0 {
		t.Error("only 2 distinct wallets on a side should never trigger, regardless of order count")
	}
}

func TestTrackOrderBelowCumulativeSizeDoesNotTrigger(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{
		"w1": "A", "w2": "A", "w3": "A",
	}}
	signaler := &capturingSignaler{}
	tr := New(grader, signaler, zap.NewNop())

	ctx := context.Background()
	_ = tr.TrackOrder(ctx, "mkt-1", "w1", "YES", 50)
	_ = tr.TrackOrder(ctx, "mkt-1", "w2", "YES", 50)
	_ = tr.TrackOrder(ctx, "mkt-1", "w3", "YES", 50)

	if signaler.count() != 0 {
		t.Error("total size below $500 should not trigger even with 3 distinct wallets")
	}
}

func TestTrackOrderSidesEvaluatedIndependently(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{
		"w1": "A", "w2": "A", "w3": "A", "w4": "A",
	}}
	signaler := &capturingSignaler{}
	tr := New(grader, signaler, zap.NewNop())

	ctx := context.Background()
	_ = tr.TrackOrder(ctx, "mkt-1", "w1", "YES", 1000)
	_ = tr.TrackOrder(ctx, "mkt-1", "w2", "NO", 1000)
	_ = tr.TrackOrder(ctx, "mkt-1", "w3", "NO", 1000)

	if signaler.count() != 0 {
		t.Fatalf("expected no signal yet (2 on NO, 1 on YES), got %d", signaler.count())
	}

	_ = tr.TrackOrder(ctx, "mkt-1", "w4", "NO", 1000)
	if signaler.count() != 1 {
		t.Errorf("expected exactly one NO-side signal once the 3rd NO wallet arrives, got %d", signaler.count())
	}
	if signaler.calls[0].side != "NO" {
		t.Errorf("signal side = %q, want NO", signaler.calls[0].side)
	}
}

func TestStopTrackingClearsRing(t *testing.T) {
	grader := &fakeGrader{grades: map[string]string{"w1": "A"}}
	tr := New(grader, nil, zap.NewNop())
	tr.StartTracking("mkt-1")
	_ = tr.TrackOrder(context.Background(), "mkt-1", "w1", "YES", 100)
	tr.StopTracking("mkt-1")

	tr.mu.Lock()
	_, exists := tr.rings["mkt-1"]
	tr.mu.Unlock()
	if exists {
		t.Error("StopTracking should remove the market's ring")
	}
}
