package listener

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/snipe-engine/internal/executor"
	"github.com/dantezy/snipe-engine/internal/radar"
)

// RadarSource supplies the active market set the Listener watches.
type RadarSource interface {
	Scan(ctx context.Context, useCache bool) ([]radar.Market, error)
}

// KeywordStore supplies the global high-value keyword list, refreshed from
// a config store every TargetRefreshCycles cycles.
type KeywordStore interface {
	GlobalKeywords(ctx context.Context) ([]string, error)
}

// OutboundSignaler is the narrow interface the Listener uses to publish a
// LISTENER_MATCH signal, same shape as radar.OutboundSignaler — both are
// satisfied by the one Publisher implementation, broken out separately so
// neither package imports the other's concrete type.
type OutboundSignaler interface {
	Emit(ctx context.Context, signalType, marketID, side string, magnitude float64, metadata map[string]any) error
}

// TradeOpener is the Executor's narrow surface, invoked on every match.
type TradeOpener interface {
	Execute(ctx context.Context, in executor.TriggerInput) (executor.Decision, error)
}

// Config controls cycle timing and dedup capacity.
type Config struct {
	CycleInterval       time.Duration
	RecoveryInterval    time.Duration
	TargetRefreshCycles int
	PostsPerHandle      int
	NewsEntriesPerFeed  int
	DedupCap            int
	DedupPruneTo        int
	NewsFeeds           []string
}

// Listener concurrently watches social posts and news feeds for trigger
// events matching the active market set.
type Listener struct {
	cfg Config

	radarSrc  RadarSource
	keywords  KeywordStore
	posts     PostSource
	news      NewsSource
	signaler  OutboundSignaler
	executor  TradeOpener
	log       *zap.Logger

	running atomic

	cycleCount int

	targets        []Target
	globalKeywords []string

	seenPostsMu sync.Mutex
	seenPosts   map[string]time.Time

	seenNewsMu sync.Mutex
	seenNews   map[string]time.Time
}

// atomic is a tiny bool flip read at the top of the loop, matching the
// source's is_running boolean: Stop is non-preemptive, the in-flight cycle
// always runs to completion.
type atomic struct {
	mu      sync.Mutex
	running bool
}

func (a *atomic) set(v bool) {
	a.mu.Lock()
	a.running = v
	a.mu.Unlock()
}

func (a *atomic) get() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// New builds a Listener.
func New(cfg Config, radarSrc RadarSource, keywords KeywordStore, posts PostSource, news NewsSource, signaler OutboundSignaler, exec TradeOpener, log *zap.Logger) *Listener {
	return &Listener{
		cfg:       cfg,
		radarSrc:  radarSrc,
		keywords:  keywords,
		posts:     posts,
		news:      news,
		signaler:  signaler,
		executor:  exec,
		log:       log,
		seenPosts: make(map[string]time.Time),
		seenNews:  make(map[string]time.Time),
	}
}

// Start flips the running flag and begins the monitor loop on the caller's
// goroutine; callers typically invoke this via `go listener.Start(ctx)`.
func (l *Listener) Start(ctx context.Context) {
	l.running.set(true)
	l.monitorLoop(ctx)
}

// Stop flips the running flag off. It is non-preemptive: an in-flight
// cycle runs to completion before the loop observes the flag.
func (l *Listener) Stop() {
	l.running.set(false)
}

func (l *Listener) monitorLoop(ctx context.Context) {
	l.log.Info("listener: monitor loop started")

	for l.running.get() {
		if err := l.runCycle(ctx); err != nil {
			l.log.Error("listener: cycle error", zap.Error(err))
			sleep(ctx, l.cfg.RecoveryInterval)
			continue
		}
		sleep(ctx, l.cfg.CycleInterval)
	}

	l.log.Info("listener: monitor loop stopped")
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (l *Listener) runCycle(ctx context.Context) error {
	if l.cycleCount%l.cfg.TargetRefreshCycles == 0 {
		if err := l.updateTargets(ctx); err != nil {
			l.log.Warn("listener: failed to update targets", zap.Error(err))
		}
	}
	l.cycleCount++

	if len(l.targets) > 0 {
		l.checkSocial(ctx)
	}
	l.checkNews(ctx)

	return nil
}

func (l *Listener) updateTargets(ctx context.Context) error {
	markets, err := l.radarSrc.Scan(ctx, true)
	if err != nil {
		return fmt.Errorf("listener: scan: %w", err)
	}

	targets := make([]Target, 0, len(markets))
	for _, m := range markets {
		targets = append(targets, Target{
			Market:   m,
			Keywords: radar.ExtractTriggerKeywords(m.Title),
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Market.IsFavorite != targets[j].Market.IsFavorite {
			return targets[i].Market.IsFavorite
		}
		return targets[i].Market.SnipeScore > targets[j].Market.SnipeScore
	})

	l.targets = targets

	if l.cycleCount%l.cfg.TargetRefreshCycles == 0 && l.keywords != nil {
		kws, err := l.keywords.GlobalKeywords(ctx)
		if err != nil {
			l.log.Warn("listener: failed to load global keywords", zap.Error(err))
		} else {
			l.globalKeywords = kws
		}
	}

	l.log.Info("listener: targets updated", zap.Int("count", len(l.targets)))
	return nil
}

// handlesForTargets derives the set of social handles implied by persons on
// tracked markets.
func (l *Listener) handlesForTargets() []string {
	seen := make(map[string]bool)
	var handles []string
	for _, t := range l.targets {
		for _, person := range t.Market.Persons {
			if handle, ok := radar.CanonicalHandle(person); ok && !seen[handle] {
				seen[handle] = true
				handles = append(handles, handle)
			}
		}
	}
	return handles
}

func (l *Listener) checkSocial(ctx context.Context) {
	if l.posts == nil {
		return
	}
	for _, handle := range l.handlesForTargets() {
		fetched, err := l.posts.FetchRecent(ctx, handle, l.cfg.PostsPerHandle)
		if err != nil {
			l.log.Warn("listener: failed to fetch posts", zap.String("handle", handle), zap.Error(err))
			continue
		}
		for _, post := range fetched {
			if l.seenPost(post.Link) {
				continue
			}
			for _, target := range l.targets {
				if Match(post.Text, target, l.globalKeywords) {
					l.triggerSnipe(ctx, target, post.Text, "Twitter", "@"+handle)
				}
			}
		}
	}
}

func (l *Listener) checkNews(ctx context.Context) {
	if l.news == nil {
		return
	}
	for _, feedURL := range l.cfg.NewsFeeds {
		entries, err := l.news.FetchFeed(ctx, feedURL, l.cfg.NewsEntriesPerFeed)
		if err != nil {
			l.log.Warn("listener: failed to parse feed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if l.seenNewsLink(entry.Link) {
				continue
			}
			content := entry.Title + " " + entry.Summary
			for _, target := range l.targets {
				if Match(content, target, l.globalKeywords) {
					l.triggerSnipe(ctx, target, content, "News", feedURL)
				}
			}
		}
	}
}

func (l *Listener) seenPost(link string) bool {
	if link == "" {
		return false
	}
	l.seenPostsMu.Lock()
	defer l.seenPostsMu.Unlock()
	if _, ok := l.seenPosts[link]; ok {
		return true
	}
	l.seenPosts[link] = time.Now()
	pruneDedup(l.seenPosts, l.cfg.DedupCap, l.cfg.DedupPruneTo)
	return false
}

func (l *Listener) seenNewsLink(link string) bool {
	if link == "" {
		return false
	}
	l.seenNewsMu.Lock()
	defer l.seenNewsMu.Unlock()
	if _, ok := l.seenNews[link]; ok {
		return true
	}
	l.seenNews[link] = time.Now()
	pruneDedup(l.seenNews, l.cfg.DedupCap, l.cfg.DedupPruneTo)
	return false
}

// pruneDedup keeps a dedup map bounded: once it exceeds cap entries (or any
// entry is older than 24h), it's pruned down to the pruneTo most recent
// entries, matching the source's "cap at 1000, prune to 500" rule.
func pruneDedup(m map[string]time.Time, capacity, pruneTo int) {
	cutoff := time.Now().Add(-24 * time.Hour)
	tooOld := false
	for _, t := range m {
		if t.Before(cutoff) {
			tooOld = true
			break
		}
	}
	if len(m) <= capacity && !tooOld {
		return
	}

	type entry struct {
		key string
		at  time.Time
	}
	entries := make([]entry, 0, len(m))
	for k, t := range m {
		if t.Before(cutoff) {
			continue
		}
		entries = append(entries, entry{k, t})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	if len(entries) > pruneTo {
		entries = entries[:pruneTo]
	}

	for k := range m {
		delete(m, k)
	}
	for _, e := range entries {
		m[e.key] = e.at
	}
}

func (l *Listener) triggerSnipe(ctx context.Context, target Target, content, sourceType, sourceName string) {
	m := target.Market
	magnitude := m.SnipeScore * m.PriorityBoost
	if magnitude > 1.0 {
		magnitude = 1.0
	}

	l.log.Info("listener: snipe triggered",
		zap.String("market_id", m.ID),
		zap.String("source_type", sourceType),
		zap.String("source_name", sourceName))

	side := "YES"
	if l.signaler != nil {
		if err := l.signaler.Emit(ctx, "LISTENER_MATCH", m.ID, side, magnitude, map[string]any{
			"content":     truncate(content, 280),
			"source_type": sourceType,
			"source_name": sourceName,
			"keywords":    target.Keywords,
		}); err != nil {
			l.log.Warn("listener: failed to emit signal", zap.Error(err))
		}
	}

	if l.executor == nil {
		return
	}
	in := executor.TriggerInput{
		MarketID:        m.ID,
		Volume:          m.Volume,
		Liquidity:       m.Liquidity,
		SnipeScore:      m.SnipeScore,
		Urgency:         string(m.Urgency),
		DaysRemaining:   m.DaysRemaining,
		Content:         content,
		SourceType:      sourceType,
		SourceName:      sourceName,
		MatchedKeywords: target.Keywords,
		SignalTimestamp: time.Now(),
	}
	if _, err := l.executor.Execute(ctx, in); err != nil {
		l.log.Warn("listener: executor failed to process trigger", zap.String("market_id", m.ID), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
