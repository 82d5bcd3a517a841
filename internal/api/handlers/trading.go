package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/execution"
	"github.com/alphastack/discovery/pkg/logger"
)

// TradingHandler handles trade submission and exposure queries
// ⭐ SSOT: trading API handlers live in this struct only
type TradingHandler struct {
	executor *execution.Executor
	logger   *logger.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(executor *execution.Executor, log *logger.Logger) *TradingHandler {
	return &TradingHandler{
		executor: executor,
		logger:   log,
	}
}

// PostTrade submits a buy intent through the guardrails.
// POST /api/trades
//
// Guardrail rejections come back 422 with a machine-readable payload:
// reason, detail, and for cap rejections the violated limit and the
// attempted value. Broker failures are 502.
func (h *TradingHandler) PostTrade(w http.ResponseWriter, r *http.Request) {
	var intent contracts.BuyIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if intent.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	result, err := h.executor.SubmitBuyIntent(r.Context(), &intent)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", intent.Symbol).Error("Trade submission failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	status := http.StatusOK
	if result.State == contracts.IntentRejected {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, result)
}

// GetExposure returns the committed exposure ledger.
// GET /api/exposure
func (h *TradingHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.executor.Exposure())
}
