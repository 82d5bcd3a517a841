package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/scan"
	"github.com/alphastack/discovery/pkg/logger"
)

// DiscoveryHandler serves scored candidates out of the scan cache
// ⭐ SSOT: discovery API responses are shaped in this struct only
type DiscoveryHandler struct {
	cache  *scan.Cache
	logger *logger.Logger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(cache *scan.Cache, log *logger.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		cache:  cache,
		logger: log,
	}
}

// discoveriesResponse wraps the candidate list with snapshot metadata
// so callers can tell fresh live data from a fallback
type discoveriesResponse struct {
	Candidates      []contracts.ScoreResult `json:"candidates"`
	Source          string                  `json:"source"`
	UpdatedAt       time.Time               `json:"updated_at"`
	AgeSeconds      float64                 `json:"age_seconds"`
	PreFilterCount  int                     `json:"pre_filter_count"`
	PostFilterCount int                     `json:"post_filter_count"`
}

// GetDiscoveries returns the current candidate snapshot.
// GET /api/discoveries?limit=N
//
// Reads never block on a scan: a stale snapshot is served as-is while
// the refresh runs in the background.
func (h *DiscoveryHandler) GetDiscoveries(w http.ResponseWriter, r *http.Request) {
	entry := h.cache.GetOrRefresh(r.Context())
	if entry == nil {
		respondJSON(w, http.StatusOK, discoveriesResponse{
			Candidates: []contracts.ScoreResult{},
			Source:     "none",
		})
		return
	}

	candidates := entry.Payload
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(candidates) {
			candidates = candidates[:limit]
		}
	}
	if candidates == nil {
		candidates = []contracts.ScoreResult{}
	}

	respondJSON(w, http.StatusOK, discoveriesResponse{
		Candidates:      candidates,
		Source:          entry.Source,
		UpdatedAt:       entry.UpdatedAt,
		AgeSeconds:      entry.Age(time.Now()).Seconds(),
		PreFilterCount:  entry.PreFilterCount,
		PostFilterCount: entry.PostFilterCount,
	})
}

// RefreshScan forces a synchronous cache refresh.
// POST /api/scan/refresh
func (h *DiscoveryHandler) RefreshScan(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Refresh(r.Context()); err != nil {
		h.logger.WithError(err).Error("Manual scan refresh failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := map[string]interface{}{"status": "refreshed"}
	if entry := h.cache.Snapshot(); entry != nil {
		resp["post_filter_count"] = entry.PostFilterCount
		resp["updated_at"] = entry.UpdatedAt
	}
	respondJSON(w, http.StatusOK, resp)
}
