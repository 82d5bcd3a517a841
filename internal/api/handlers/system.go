package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/alphastack/discovery/internal/heartbeat"
	"github.com/alphastack/discovery/internal/scheduler"
	"github.com/alphastack/discovery/pkg/logger"
)

// SystemHandler exposes operational state: source freshness and job
// execution stats
type SystemHandler struct {
	monitor   *heartbeat.Monitor
	scheduler *scheduler.Scheduler // optional, nil in api-only mode
	logger    *logger.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(monitor *heartbeat.Monitor, sched *scheduler.Scheduler, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		monitor:   monitor,
		scheduler: sched,
		logger:    log,
	}
}

// GetHeartbeat returns the per-source freshness snapshot.
// GET /api/heartbeat
func (h *SystemHandler) GetHeartbeat(w http.ResponseWriter, r *http.Request) {
	snapshot := h.monitor.Snapshot()
	if snapshot == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"sources":     map[string]interface{}{},
			"all_healthy": false,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources":     snapshot.Sources,
		"checked_at":  snapshot.CheckedAt,
		"all_healthy": snapshot.AllHealthy(),
	})
}

// GetJobs returns scheduler job statistics.
// GET /api/jobs
func (h *SystemHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondJSON(w, http.StatusOK, map[string]scheduler.JobStats{})
		return
	}
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
