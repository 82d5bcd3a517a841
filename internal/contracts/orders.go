package contracts

import "time"

// IntentState tracks a buy intent through the guardrail state machine
type IntentState string

const (
	IntentReceived      IntentState = "RECEIVED"
	IntentValidated     IntentState = "VALIDATED"
	IntentRejected      IntentState = "REJECTED"
	IntentDryRun        IntentState = "DRY_RUN"
	IntentSubmitted     IntentState = "SUBMITTED"
	IntentFilledTracked IntentState = "FILLED_TRACKED"
)

// RejectionReason identifies which guardrail blocked an intent
type RejectionReason string

const (
	RejectWindow    RejectionReason = "trading_window"
	RejectParams    RejectionReason = "param_range"
	RejectDailyCap  RejectionReason = "daily_cap"
	RejectSymbolCap RejectionReason = "symbol_cap"
)

// BuyIntent is a UI/API-issued request to open a position
// ⭐ SSOT: API → executor order hand-off
type BuyIntent struct {
	Symbol       string  `json:"symbol"`
	USDAmount    float64 `json:"usd_amount"`
	CurrentPrice float64 `json:"current_price"`
	TP1Pct       float64 `json:"tp1_pct"`
	TP2Pct       float64 `json:"tp2_pct"`
	StopPct      float64 `json:"stop_pct"`
}

// BracketOrder is one leg of a split intent: a buy paired with one
// take-profit and one stop-loss exit
type BracketOrder struct {
	ID              string    `json:"id,omitempty"`
	Symbol          string    `json:"symbol"`
	Notional        float64   `json:"notional"`
	LimitPrice      float64   `json:"limit_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	StopPrice       float64   `json:"stop_price"`
	Leg             int       `json:"leg"` // 1 = tp1 leg, 2 = tp2 leg
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Status represents broker order status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusFilled    Status = "FILLED"
	StatusCanceled  Status = "CANCELED"
	StatusRejected  Status = "REJECTED"
)

// ExecutionResult is what the executor returns for one intent
type ExecutionResult struct {
	State  IntentState    `json:"state"`
	Orders []BracketOrder `json:"orders,omitempty"`

	// Set when State == REJECTED. Limit and Attempted let a caller see
	// exactly which cap would be exceeded and by how much.
	Reason    RejectionReason `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Limit     float64         `json:"limit,omitempty"`
	Attempted float64         `json:"attempted,omitempty"`

	// Notional actually accepted by the broker. Equals the intent amount
	// on full success, the surviving leg's notional on partial failure.
	AcceptedNotional float64 `json:"accepted_notional"`
}

// Accepted reports whether any order was placed (or synthesized)
func (r *ExecutionResult) Accepted() bool {
	return r.State == IntentSubmitted || r.State == IntentDryRun
}

// ExposureSnapshot is a read-only view of the exposure ledger
type ExposureSnapshot struct {
	Date              string             `json:"date"` // YYYY-MM-DD in the trading timezone
	DailyNotionalUsed float64            `json:"daily_notional_used"`
	PerSymbolNotional map[string]float64 `json:"per_symbol_notional"`
}

// Fill is a broker fill event from the trade-updates stream
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	FilledAt time.Time `json:"filled_at"`
}
