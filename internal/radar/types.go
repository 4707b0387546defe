// Package radar discovers, enriches, categorizes, scores and caches
// candidate prediction markets from the exchange's HTTP API.
package radar

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the declared-order bucket a market's title/description falls
// into. Order matters: Categorize checks these in exactly this order.
type Category string

const (
	CategoryTweet        Category = "tweet"
	CategorySpeech       Category = "speech"
	CategoryAnnouncement Category = "announcement"
	CategoryInterview    Category = "interview"
	CategoryStatement    Category = "statement"
	CategoryReaction     Category = "reaction"
	CategoryAction       Category = "action"
	CategoryOther        Category = "other"
)

// Urgency buckets days_remaining into a coarse label.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
	UrgencyExpired  Urgency = "expired"
	UrgencyUnknown  Urgency = "unknown"
)

// RawSubMarket is one outcome-pair entry inside a RawEvent, as the exchange
// sends it.
type RawSubMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
}

// RawEvent is the loosely-typed document straight off the wire. Numeric
// fields are kept as strings because the exchange may send either numeric
// or string JSON for them; RawEvent is never mutated once built — enrichment
// always produces a new Market.
type RawEvent struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Volume      string         `json:"volume"`
	Liquidity   string         `json:"liquidity"`
	CreatedAt   string         `json:"createdAt"`
	EndDate     string         `json:"endDate"`
	Image       string         `json:"image"`
	Markets     []RawSubMarket `json:"markets"`
}

// ScoreBreakdown is the weighted sub-scores behind a Market's snipe_score.
type ScoreBreakdown struct {
	TriggerClarity float64
	Monitorability float64
	ReactionSpeed  float64
	Urgency        float64
	VolumeScore    float64
	LiquidityScore float64
}

// Market is the enriched record built from a RawEvent. It is the distinct,
// explicitly-typed structure the base spec's design notes call for: an
// enrichment pass builds a new Market, it never mutates the RawEvent.
type Market struct {
	ID          string
	Title       string
	Description string
	Slug        string
	URL         string
	Image       string

	EndDate       time.Time
	HasEndDate    bool
	Volume        decimal.Decimal
	Liquidity     decimal.Decimal

	Category Category
	Persons  []string

	DaysRemaining    *int
	Urgency          Urgency
	UrgencyRate      int
	SnipeScore       float64
	ScoreBreakdown   ScoreBreakdown

	IsFavorite    bool
	PriorityBoost float64
}

// HasQuotedContent reports whether the title carries at least one quoted
// substring of length >= 2 — the signal that a listener has something
// concrete to watch for.
func (m Market) HasQuotedContent() bool {
	return len(ExtractTriggerKeywords(m.Title)) > 0
}
