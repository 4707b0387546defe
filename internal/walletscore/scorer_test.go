package walletscore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCalculateScoreEmptyHistoryIsGradeD(t *testing.T) {
	grade, breakdown := CalculateScore(nil)
	if grade != GradeD {
		t.Errorf("grade = %v, want D for empty history", grade)
	}
	if breakdown.TotalMarkets != 0 {
		t.Errorf("TotalMarkets = %d, want 0", breakdown.TotalMarkets)
	}
}

func TestCalculateScoreAllWinsGradesHigh(t *testing.T) {
	trades := []Trade{
		{Outcome: "WIN", Profit: 500, BetSize: 100, HasTiming: true, TimeToMove: 10, MarketDuration: 1000},
		{Outcome: "WIN", Profit: 500, BetSize: 100, HasTiming: true, TimeToMove: 10, MarketDuration: 1000},
		{Outcome: "WIN", Profit: 500, BetSize: 100, HasTiming: true, TimeToMove: 10, MarketDuration: 1000},
	}
	grade, breakdown := CalculateScore(trades)
	if grade != GradeA {
		t.Errorf("grade = %v, want A for a spotless win streak with fast, early timing, got breakdown %+v", grade, breakdown)
	}
	if breakdown.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", breakdown.SuccessRate)
	}
}

func TestCalculateScoreAllLossesGradesLow(t *testing.T) {
	trades := []Trade{
		{Outcome: "LOSS", Profit: -100, BetSize: 100},
		{Outcome: "LOSS", Profit: -100, BetSize: 100},
		{Outcome: "LOSS", Profit: -100, BetSize: 100},
	}
	grade, _ := CalculateScore(trades)
	if grade != GradeD {
		t.Errorf("grade = %v, want D for a spotless loss streak", grade)
	}
}

func TestCalculateScoreNoTimingDataDefaultsToNeutral(t *testing.T) {
	trades := []Trade{
		{Outcome: "WIN", Profit: 100, BetSize: 100},
	}
	_, breakdown := CalculateScore(trades)
	if breakdown.TimingScore != 0.5 {
		t.Errorf("TimingScore = %v, want default neutral 0.5 with no timing data", breakdown.TimingScore)
	}
}

func TestAssignGradeBreakpoints(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{0.80, GradeA},
		{0.79, GradeB},
		{0.60, GradeB},
		{0.59, GradeC},
		{0.40, GradeC},
		{0.39, GradeD},
		{0.0, GradeD},
	}
	for _, tc := range cases {
		if got := assignGrade(tc.score); got != tc.want {
			t.Errorf("assignGrade(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

type fakeCache struct {
	values map[string]string
	setErr error
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeCache) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[key] = value
	return nil
}

type fakeStore struct {
	records map[string]Record
}

func (f *fakeStore) UpsertWalletScore(ctx context.Context, rec Record) error {
	if f.records == nil {
		f.records = make(map[string]Record)
	}
	f.records[rec.Wallet] = rec
	return nil
}

func (f *fakeStore) GetWalletScore(ctx context.Context, wallet string) (Record, bool, error) {
	rec, ok := f.records[wallet]
	return rec, ok, nil
}

func TestGetWalletGradeCacheHit(t *testing.T) {
	cache := &fakeCache{values: map[string]string{cacheKey("0xabc"): "A"}}
	s := New(cache, nil, zap.NewNop())

	grade, err := s.GetWalletGrade(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetWalletGrade: %v", err)
	}
	if grade != "A" {
		t.Errorf("grade = %q, want A from cache", grade)
	}
}

func TestGetWalletGradeFallsThroughToStoreAndReprimesCache(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{records: map[string]Record{
		"0xabc": {Wallet: "0xabc", Grade: GradeB},
	}}
	s := New(cache, store, zap.NewNop())

	grade, err := s.GetWalletGrade(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetWalletGrade: %v", err)
	}
	if grade != "B" {
		t.Errorf("grade = %q, want B from store", grade)
	}
	if cache.values[cacheKey("0xabc")] != "B" {
		t.Error("store hit should re-prime the cache")
	}
}

func TestGetWalletGradeUnknownWhenNoSourceHasWallet(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{}
	s := New(cache, store, zap.NewNop())

	grade, err := s.GetWalletGrade(context.Background(), "0xnew")
	if err != nil {
		t.Fatalf("GetWalletGrade: %v", err)
	}
	if grade != string(GradeUnknown) {
		t.Errorf("grade = %q, want UNKNOWN", grade)
	}
}

func TestGetWalletGradeNoCacheNoStoreIsUnknown(t *testing.T) {
	s := New(nil, nil, zap.NewNop())
	grade, err := s.GetWalletGrade(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetWalletGrade: %v", err)
	}
	if grade != string(GradeUnknown) {
		t.Errorf("grade = %q, want UNKNOWN with no sources configured", grade)
	}
}

func TestUpdateWalletScorePersistsAndCaches(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{}
	s := New(cache, store, zap.NewNop())

	rec, err := s.UpdateWalletScore(context.Background(), "0xabc", []Trade{
		{Outcome: "WIN", Profit: 100, BetSize: 100},
	})
	if err != nil {
		t.Fatalf("UpdateWalletScore: %v", err)
	}
	if rec.Wallet != "0xabc" {
		t.Errorf("rec.Wallet = %q, want 0xabc", rec.Wallet)
	}
	if _, ok := store.records["0xabc"]; !ok {
		t.Error("UpdateWalletScore should persist to the store")
	}
	if cache.values[cacheKey("0xabc")] != string(rec.Grade) {
		t.Error("UpdateWalletScore should prime the cache with the new grade")
	}
}
