package contracts

import "time"

// SourceStatus is the freshness state of one upstream data source
type SourceStatus string

const (
	SourceOK    SourceStatus = "OK"    // check succeeded, data within threshold
	SourceStale SourceStatus = "STALE" // check succeeded, data older than threshold
	SourceDown  SourceStatus = "DOWN"  // check itself failed
)

// SourceHealth is one source's entry in a heartbeat snapshot
type SourceHealth struct {
	Status             SourceStatus  `json:"status"`
	LastOkAt           time.Time     `json:"last_ok_at"`
	LastCheckedAt      time.Time     `json:"last_checked_at"`
	FreshnessThreshold time.Duration `json:"freshness_threshold"`
	Detail             string        `json:"detail,omitempty"`
}

// HeartbeatSnapshot is the full per-source freshness view
// ⭐ SSOT: heartbeat → scan gate / API hand-off
type HeartbeatSnapshot struct {
	Sources   map[string]SourceHealth `json:"sources"`
	CheckedAt time.Time               `json:"checked_at"`
}

// AllHealthy reports whether every source is OK
func (s *HeartbeatSnapshot) AllHealthy() bool {
	if s == nil || len(s.Sources) == 0 {
		return false
	}
	for _, h := range s.Sources {
		if h.Status != SourceOK {
			return false
		}
	}
	return true
}
