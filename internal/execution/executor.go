package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

// Executor runs every buy intent through the guardrail state machine:
// RECEIVED → VALIDATED → {REJECTED | DRY_RUN | SUBMITTED} →
// FILLED_TRACKED. A validated intent is split into two equal-notional
// bracket legs, one per take-profit level, sharing a single stop.
type Executor struct {
	cfg    config.TradingConfig
	ledger *Ledger
	broker Broker
	orders contracts.OrderRepository // optional

	loc *time.Location
	now func() time.Time
	log *logger.Logger
}

// NewExecutor wires the guardrails. The timezone was validated at
// config load.
func NewExecutor(cfg config.TradingConfig, ledger *Ledger, broker Broker, orders contracts.OrderRepository, log *logger.Logger) *Executor {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Executor{
		cfg:    cfg,
		ledger: ledger,
		broker: broker,
		orders: orders,
		loc:    loc,
		now:    time.Now,
		log:    log.WithField("component", "executor"),
	}
}

// SubmitBuyIntent validates and executes one intent. Guardrail
// rejections come back as a REJECTED result with the violated limit
// and the value the intent would have produced; only broker-level
// failures return an error.
func (e *Executor) SubmitBuyIntent(ctx context.Context, intent *contracts.BuyIntent) (*contracts.ExecutionResult, error) {
	if result := e.validateWindow(); result != nil {
		return result, nil
	}
	if result := e.validateParams(intent); result != nil {
		return result, nil
	}

	// Reservation makes check-and-place atomic against concurrent
	// intents; committed exposure still only reflects placed orders.
	if err := e.ledger.Reserve(intent.Symbol, intent.USDAmount); err != nil {
		var capErr *CapError
		if errors.As(err, &capErr) {
			e.log.WithFields(map[string]interface{}{
				"symbol": intent.Symbol,
				"reason": string(capErr.Reason),
			}).Warn("Buy intent rejected by exposure cap")
			return &contracts.ExecutionResult{
				State:     contracts.IntentRejected,
				Reason:    capErr.Reason,
				Detail:    capErr.Error(),
				Limit:     capErr.Limit,
				Attempted: capErr.Attempted,
			}, nil
		}
		return nil, err
	}

	legs := splitLegs(intent)

	if !e.cfg.OrdersEnabled {
		e.ledger.Release(intent.Symbol, intent.USDAmount)
		return &contracts.ExecutionResult{
			State:            contracts.IntentDryRun,
			Orders:           legs,
			AcceptedNotional: 0,
		}, nil
	}

	return e.submit(ctx, intent, legs)
}

// validateWindow checks the local trading window
func (e *Executor) validateWindow() *contracts.ExecutionResult {
	now := e.now().In(e.loc)
	hhmm := now.Format("15:04")
	if hhmm >= e.cfg.TradeStart && hhmm < e.cfg.TradeEnd {
		return nil
	}
	return &contracts.ExecutionResult{
		State:  contracts.IntentRejected,
		Reason: contracts.RejectWindow,
		Detail: fmt.Sprintf("outside trading window %s-%s %s (now %s)",
			e.cfg.TradeStart, e.cfg.TradeEnd, e.cfg.Timezone, hhmm),
	}
}

// validateParams checks amount, price, and the per-leg percentage ranges
func (e *Executor) validateParams(intent *contracts.BuyIntent) *contracts.ExecutionResult {
	reject := func(detail string) *contracts.ExecutionResult {
		return &contracts.ExecutionResult{
			State:  contracts.IntentRejected,
			Reason: contracts.RejectParams,
			Detail: detail,
		}
	}

	if intent.USDAmount <= 0 {
		return reject("usd_amount must be positive")
	}
	if intent.CurrentPrice <= 0 {
		return reject("current_price must be positive")
	}
	if intent.TP1Pct < e.cfg.MinTP1Pct || intent.TP1Pct > e.cfg.MaxTP1Pct {
		return reject(fmt.Sprintf("tp1_pct %.3f outside [%.3f, %.3f]",
			intent.TP1Pct, e.cfg.MinTP1Pct, e.cfg.MaxTP1Pct))
	}
	if intent.TP2Pct < e.cfg.MinTP2Pct || intent.TP2Pct > e.cfg.MaxTP2Pct {
		return reject(fmt.Sprintf("tp2_pct %.3f outside [%.3f, %.3f]",
			intent.TP2Pct, e.cfg.MinTP2Pct, e.cfg.MaxTP2Pct))
	}
	if intent.TP2Pct <= intent.TP1Pct {
		return reject("tp2_pct must exceed tp1_pct")
	}
	if intent.StopPct < e.cfg.MinStopPct || intent.StopPct > e.cfg.MaxStopPct {
		return reject(fmt.Sprintf("stop_pct %.3f outside [%.3f, %.3f]",
			intent.StopPct, e.cfg.MinStopPct, e.cfg.MaxStopPct))
	}
	return nil
}

// splitLegs builds the two bracket legs: equal notional, shared stop,
// staggered take profits
func splitLegs(intent *contracts.BuyIntent) []contracts.BracketOrder {
	half := intent.USDAmount / 2
	stop := intent.CurrentPrice * (1 - intent.StopPct)
	return []contracts.BracketOrder{
		{
			Symbol:          intent.Symbol,
			Notional:        half,
			LimitPrice:      intent.CurrentPrice,
			TakeProfitPrice: intent.CurrentPrice * (1 + intent.TP1Pct),
			StopPrice:       stop,
			Leg:             1,
			Status:          contracts.StatusPending,
		},
		{
			Symbol:          intent.Symbol,
			Notional:        half,
			LimitPrice:      intent.CurrentPrice,
			TakeProfitPrice: intent.CurrentPrice * (1 + intent.TP2Pct),
			StopPrice:       stop,
			Leg:             2,
			Status:          contracts.StatusPending,
		},
	}
}

// submit places both legs concurrently and commits exactly the
// notional the broker accepted. A slow leg never blocks the other.
func (e *Executor) submit(ctx context.Context, intent *contracts.BuyIntent, legs []contracts.BracketOrder) (*contracts.ExecutionResult, error) {
	type legResult struct {
		placed *contracts.BracketOrder
		err    error
	}

	results := make([]legResult, len(legs))
	var wg sync.WaitGroup
	wg.Add(len(legs))
	for i := range legs {
		go func(i int) {
			defer wg.Done()
			placed, err := e.broker.PlaceBracketOrder(ctx, &legs[i])
			results[i] = legResult{placed: placed, err: err}
		}(i)
	}
	wg.Wait()

	var placed []contracts.BracketOrder
	var accepted float64
	var legErrs []error
	for i, r := range results {
		if r.err != nil {
			legErrs = append(legErrs, fmt.Errorf("leg %d: %w", legs[i].Leg, r.err))
			continue
		}
		accepted += r.placed.Notional
		placed = append(placed, *r.placed)
	}

	e.ledger.Commit(intent.Symbol, intent.USDAmount, accepted)

	for i := range placed {
		e.persist(ctx, &placed[i])
	}

	if len(placed) == 0 {
		return nil, fmt.Errorf("all legs rejected by broker: %w", errors.Join(legErrs...))
	}

	result := &contracts.ExecutionResult{
		State:            contracts.IntentSubmitted,
		Orders:           placed,
		AcceptedNotional: accepted,
	}
	if len(legErrs) > 0 {
		result.Detail = errors.Join(legErrs...).Error()
		e.log.WithFields(map[string]interface{}{
			"symbol":   intent.Symbol,
			"accepted": accepted,
			"intended": intent.USDAmount,
		}).Warn("Partial bracket submission")
	} else {
		e.log.WithFields(map[string]interface{}{
			"symbol":   intent.Symbol,
			"notional": accepted,
		}).Info("Bracket orders submitted")
	}
	return result, nil
}

// persist records a placed leg, best effort
func (e *Executor) persist(ctx context.Context, order *contracts.BracketOrder) {
	if e.orders == nil {
		return
	}
	if err := e.orders.Save(ctx, order); err != nil {
		e.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to persist order")
	}
}

// TrackFill marks a leg filled from the broker's trade-updates stream
func (e *Executor) TrackFill(ctx context.Context, fill *contracts.Fill) error {
	e.log.WithFields(map[string]interface{}{
		"order_id": fill.OrderID,
		"symbol":   fill.Symbol,
		"price":    fill.Price,
	}).Info("Order filled")

	if e.orders == nil {
		return nil
	}
	return e.orders.MarkFilled(ctx, fill.OrderID, fill.FilledAt)
}

// Exposure returns the committed exposure snapshot
func (e *Executor) Exposure() *contracts.ExposureSnapshot {
	return e.ledger.Snapshot()
}
