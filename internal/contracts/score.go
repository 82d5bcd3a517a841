package contracts

import "time"

// Action is the trade-readiness label derived from the composite score
type Action string

const (
	ActionBuy         Action = "BUY"
	ActionEarlyReady  Action = "EARLY_READY"
	ActionPreBreakout Action = "PRE_BREAKOUT"
	ActionWatchlist   Action = "WATCHLIST"
	ActionMonitor     Action = "MONITOR"
)

// Subscore component names used as keys in ScoreResult.Components
const (
	ComponentVolume    = "volume"
	ComponentSqueeze   = "squeeze"
	ComponentCatalyst  = "catalyst"
	ComponentSentiment = "sentiment"
	ComponentOptions   = "options"
	ComponentTechnical = "technical"
)

// Diagnostic reason strings attached to ScoreResult.Reasons
const (
	ReasonInsufficientBars = "insufficient_bars"
	ReasonNewsFail         = "news_fail"
	ReasonOptionsOff       = "options_unavailable"
	ReasonShortEstimated   = "short_interest_estimated"
)

// ScoreResult is one scored candidate
// ⭐ SSOT: scoring → cache/API candidate hand-off
type ScoreResult struct {
	Symbol     string             `json:"symbol"`
	Composite  float64            `json:"composite"`  // [0,100]
	Components map[string]float64 `json:"components"` // each [0,100]
	Action     Action             `json:"action"`
	Reasons    []string           `json:"reasons,omitempty"`

	Price float64 `json:"price"`

	// Enrichment results (zero until the enrichment pass runs)
	Explosiveness int           `json:"explosiveness,omitempty"`
	SqueezeRisk   int           `json:"squeeze_risk,omitempty"`
	Targets       *EntryTargets `json:"targets,omitempty"`

	ScoredAt time.Time `json:"scored_at"`
}

// EntryTargets is the staged exit ladder derived from score tier and
// realized volatility
type EntryTargets struct {
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	TP1        float64 `json:"tp1"`
	TP2        float64 `json:"tp2"`
	StopPct    float64 `json:"stop_pct"`
	TP1Pct     float64 `json:"tp1_pct"`
	TP2Pct     float64 `json:"tp2_pct"`
	RiskReward float64 `json:"risk_reward"`
}

// CacheEntry is one full scan snapshot. It is written only by a
// successful refresh and replaced atomically, never patched in place.
type CacheEntry struct {
	Key             string        `json:"key"`
	Payload         []ScoreResult `json:"payload"`
	Source          string        `json:"source"` // live | redis | postgres
	UpdatedAt       time.Time     `json:"updated_at"`
	PreFilterCount  int           `json:"pre_filter_count"`
	PostFilterCount int           `json:"post_filter_count"`
}

// IsEmpty reports whether the entry has no candidates
func (e *CacheEntry) IsEmpty() bool {
	return e == nil || len(e.Payload) == 0
}

// Age returns how old the snapshot is
func (e *CacheEntry) Age(now time.Time) time.Duration {
	if e == nil {
		return 1<<63 - 1
	}
	return now.Sub(e.UpdatedAt)
}
