package radar

import "strings"

// scoreWeights are the fixed weights behind SnipeScore, kept in one place so
// the end-to-end worked examples in the spec stay easy to check by eye.
const (
	weightTriggerClarity = 0.30
	weightMonitorability = 0.25
	weightReactionSpeed  = 0.20
	weightUrgency        = 0.15
	weightVolume         = 0.05
	weightLiquidity      = 0.05
)

// triggerClarity scores how literally a market's resolution criterion is
// spelled out in its title.
func triggerClarity(category Category, title string, hasQuote bool) float64 {
	lower := strings.ToLower(title)
	switch {
	case category == CategoryTweet && hasQuote:
		return 1.0
	case category == CategoryTweet:
		return 0.9
	case (category == CategorySpeech || category == CategoryAnnouncement || category == CategoryStatement) && hasQuote:
		return 0.9
	case category == CategorySpeech || category == CategoryAnnouncement || category == CategoryStatement:
		return 0.7
	case strings.Contains(lower, "before") || strings.Contains(lower, "by "):
		return 0.6
	default:
		return 0.3
	}
}

// monitorability scores how easy a category is to watch for continuously.
func monitorability(category Category) float64 {
	switch category {
	case CategoryTweet:
		return 1.0
	case CategoryAnnouncement, CategoryStatement:
		return 0.8
	case CategorySpeech:
		return 0.7
	case CategoryInterview:
		return 0.6
	case CategoryAction:
		return 0.4
	default:
		return 0.3
	}
}

// reactionSpeed scores how quickly the engine can act once the trigger
// fires, relative to the market's remaining horizon. daysRemaining is the
// clamped (>=0 or nil) field, matching the upstream enrichment order where
// this runs after days_remaining has already been floored at zero.
func reactionSpeed(category Category, daysRemaining *int) float64 {
	switch {
	case category == CategoryTweet:
		return 1.0
	case category == CategoryAnnouncement || category == CategoryStatement || category == CategorySpeech:
		return 0.7
	case daysRemaining != nil && *daysRemaining > 30:
		return 0.2
	default:
		return 0.5
	}
}

// urgencyScore scores how close to resolution a market is, for the
// weighted snipe_score formula. Unlike the clamped days_remaining field,
// this takes the RAW (possibly negative) day count — a market already past
// its end date scores 0 here even though the displayed days_remaining
// field floors at zero. A nil rawDaysRemaining (unparseable end date)
// falls back to 0.3.
func urgencyScore(rawDaysRemaining *int) float64 {
	if rawDaysRemaining == nil {
		return 0.3
	}
	d := *rawDaysRemaining
	switch {
	case d < 0:
		return 0
	case d <= 1:
		return 1.0
	case d <= 7:
		return 0.9
	case d <= 30:
		return 0.7
	case d <= 90:
		return 0.4
	default:
		return 0.1
	}
}

// UrgencyLevel classifies the RAW (possibly negative) days-remaining count
// into a coarse label, per SPEC_FULL §4.1 step 5. Using the raw count
// rather than the clamped display field is what lets a genuinely past-due
// market read as expired while a market ending "today" (raw 0) reads as
// critical, not expired.
func UrgencyLevel(rawDaysRemaining *int) Urgency {
	if rawDaysRemaining == nil {
		return UrgencyUnknown
	}
	d := *rawDaysRemaining
	switch {
	case d < 0:
		return UrgencyExpired
	case d <= 1:
		return UrgencyCritical
	case d <= 7:
		return UrgencyHigh
	case d <= 30:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// UrgencyRate discretizes the CLAMPED (>=0 or nil) days-remaining field
// into the 0-100 urgency_rate, per SPEC_FULL §4.1 step 5. It is computed
// from the clamped field rather than the raw count, so an already-expired
// market (clamped to 0) and a market ending today both land in the <=0
// bucket and read as rate 0.
func UrgencyRate(clampedDaysRemaining *int) int {
	if clampedDaysRemaining == nil {
		return 0
	}
	d := *clampedDaysRemaining
	switch {
	case d <= 0:
		return 0
	case d <= 1:
		return 100
	case d <= 7:
		return 90
	case d <= 30:
		return 70
	case d <= 90:
		return 40
	default:
		return 10
	}
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ScoreMarket computes a Market's ScoreBreakdown and overall SnipeScore.
// clampedDaysRemaining feeds reaction-speed (matches the field as stored);
// rawDaysRemaining feeds the urgency sub-score (can be negative).
func ScoreMarket(category Category, title string, volume, liquidity float64, clampedDaysRemaining, rawDaysRemaining *int) (ScoreBreakdown, float64) {
	hasQuote := len(ExtractTriggerKeywords(title)) > 0

	b := ScoreBreakdown{
		TriggerClarity: triggerClarity(category, title, hasQuote),
		Monitorability: monitorability(category),
		ReactionSpeed:  reactionSpeed(category, clampedDaysRemaining),
		Urgency:        urgencyScore(rawDaysRemaining),
		VolumeScore:    clampUnit(volume / 100000),
		LiquidityScore: clampUnit(liquidity / 50000),
	}

	score := b.TriggerClarity*weightTriggerClarity +
		b.Monitorability*weightMonitorability +
		b.ReactionSpeed*weightReactionSpeed +
		b.Urgency*weightUrgency +
		b.VolumeScore*weightVolume +
		b.LiquidityScore*weightLiquidity

	return b, score
}

// IsSnipable applies the snipability filter from SPEC_FULL §4.1 step 7.
func IsSnipable(m Market) bool {
	if m.SnipeScore < 0.20 {
		return false
	}
	volume, _ := m.Volume.Float64()
	if volume < 500 {
		return false
	}
	if m.ScoreBreakdown.TriggerClarity < 0.20 {
		return false
	}
	if m.DaysRemaining != nil && (*m.DaysRemaining > 120 || *m.DaysRemaining < 0) {
		return false
	}
	if m.Urgency == UrgencyExpired {
		return false
	}
	return true
}
