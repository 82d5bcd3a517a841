package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		OrdersEnabled:     true,
		MaxDailyNotional:  2000,
		MaxTickerExposure: 500,
		TradeStart:        "09:30",
		TradeEnd:          "15:55",
		Timezone:          "UTC",
		MinTP1Pct:         0.05,
		MaxTP1Pct:         0.30,
		MinTP2Pct:         0.10,
		MaxTP2Pct:         0.60,
		MinStopPct:        0.05,
		MaxStopPct:        0.20,
	}
}

func testExecutor(t *testing.T, cfg config.TradingConfig, broker Broker) *Executor {
	t.Helper()
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
	ledger := NewLedger(cfg.MaxDailyNotional, cfg.MaxTickerExposure, time.UTC)
	e := NewExecutor(cfg, ledger, broker, nil, log)
	// Noon UTC, inside the window
	e.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return e
}

func validIntent() *contracts.BuyIntent {
	return &contracts.BuyIntent{
		Symbol:       "VIGL",
		USDAmount:    300,
		CurrentPrice: 10.0,
		TP1Pct:       0.20,
		TP2Pct:       0.40,
		StopPct:      0.10,
	}
}

// A $300 intent splits into exactly two $150 legs sharing one stop and
// targeting the two take-profit levels.
func TestSubmitSplitsTwoLegs(t *testing.T) {
	broker := NewPaperBroker()
	e := testExecutor(t, testTradingConfig(), broker)

	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	require.Equal(t, contracts.IntentSubmitted, result.State)
	require.Len(t, result.Orders, 2)

	var leg1, leg2 *contracts.BracketOrder
	for i := range result.Orders {
		switch result.Orders[i].Leg {
		case 1:
			leg1 = &result.Orders[i]
		case 2:
			leg2 = &result.Orders[i]
		}
	}
	require.NotNil(t, leg1)
	require.NotNil(t, leg2)

	assert.Equal(t, 150.0, leg1.Notional)
	assert.Equal(t, 150.0, leg2.Notional)
	assert.Equal(t, leg1.StopPrice, leg2.StopPrice, "legs share one stop")
	assert.InDelta(t, 9.0, leg1.StopPrice, 1e-9)
	assert.InDelta(t, 12.0, leg1.TakeProfitPrice, 1e-9)
	assert.InDelta(t, 14.0, leg2.TakeProfitPrice, 1e-9)

	assert.Equal(t, 300.0, result.AcceptedNotional)
	assert.Equal(t, 300.0, e.Exposure().PerSymbolNotional["VIGL"])
}

func TestSubmitOutsideWindow(t *testing.T) {
	e := testExecutor(t, testTradingConfig(), NewPaperBroker())
	e.now = func() time.Time { return time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC) }

	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentRejected, result.State)
	assert.Equal(t, contracts.RejectWindow, result.Reason)
	assert.Equal(t, 0.0, e.Exposure().DailyNotionalUsed, "rejection must not touch the ledger")
}

func TestSubmitParamRanges(t *testing.T) {
	e := testExecutor(t, testTradingConfig(), NewPaperBroker())

	cases := []struct {
		name   string
		mutate func(*contracts.BuyIntent)
	}{
		{"zero amount", func(i *contracts.BuyIntent) { i.USDAmount = 0 }},
		{"zero price", func(i *contracts.BuyIntent) { i.CurrentPrice = 0 }},
		{"tp1 too low", func(i *contracts.BuyIntent) { i.TP1Pct = 0.01 }},
		{"tp1 too high", func(i *contracts.BuyIntent) { i.TP1Pct = 0.50 }},
		{"tp2 too high", func(i *contracts.BuyIntent) { i.TP2Pct = 0.90 }},
		{"tp2 below tp1", func(i *contracts.BuyIntent) { i.TP1Pct = 0.25; i.TP2Pct = 0.20 }},
		{"stop too wide", func(i *contracts.BuyIntent) { i.StopPct = 0.40 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := validIntent()
			tc.mutate(intent)

			result, err := e.SubmitBuyIntent(context.Background(), intent)
			require.NoError(t, err)
			assert.Equal(t, contracts.IntentRejected, result.State)
			assert.Equal(t, contracts.RejectParams, result.Reason)
			assert.NotEmpty(t, result.Detail)
		})
	}
}

// Once the daily cap is reached, every intent for any symbol is
// rejected until the reset, and the rejection names the cap and the
// value the intent would have produced.
func TestDailyCapMonotonicity(t *testing.T) {
	broker := NewPaperBroker()
	cfg := testTradingConfig()
	cfg.MaxTickerExposure = 2000
	e := testExecutor(t, cfg, broker)

	for i := 0; i < 4; i++ {
		intent := validIntent()
		intent.Symbol = []string{"AAAA", "BBBB", "CCCC", "DDDD"}[i]
		intent.USDAmount = 500
		result, err := e.SubmitBuyIntent(context.Background(), intent)
		require.NoError(t, err)
		require.Equal(t, contracts.IntentSubmitted, result.State)
	}
	require.Equal(t, 2000.0, e.Exposure().DailyNotionalUsed)

	for _, symbol := range []string{"AAAA", "EEEE", "FFFF"} {
		intent := validIntent()
		intent.Symbol = symbol
		intent.USDAmount = 100

		result, err := e.SubmitBuyIntent(context.Background(), intent)
		require.NoError(t, err)
		assert.Equal(t, contracts.IntentRejected, result.State, symbol)
		assert.Equal(t, contracts.RejectDailyCap, result.Reason, symbol)
		assert.Equal(t, 2000.0, result.Limit)
		assert.Equal(t, 2100.0, result.Attempted)
	}

	// Daily reset reopens the gate
	e.ledger.Reset()
	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentSubmitted, result.State)
}

func TestSymbolCapRejection(t *testing.T) {
	e := testExecutor(t, testTradingConfig(), NewPaperBroker())

	first := validIntent()
	first.USDAmount = 400
	result, err := e.SubmitBuyIntent(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, contracts.IntentSubmitted, result.State)

	second := validIntent()
	second.USDAmount = 200
	result, err = e.SubmitBuyIntent(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentRejected, result.State)
	assert.Equal(t, contracts.RejectSymbolCap, result.Reason)
	assert.Equal(t, 500.0, result.Limit)
	assert.Equal(t, 600.0, result.Attempted)
}

func TestDryRunSynthesizesWithoutSideEffects(t *testing.T) {
	broker := NewPaperBroker()
	cfg := testTradingConfig()
	cfg.OrdersEnabled = false
	e := testExecutor(t, cfg, broker)

	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentDryRun, result.State)
	require.Len(t, result.Orders, 2)
	assert.Equal(t, 150.0, result.Orders[0].Notional)

	assert.Empty(t, broker.Orders(), "dry run must not reach the broker")
	assert.Equal(t, 0.0, e.Exposure().DailyNotionalUsed, "dry run must not mutate the ledger")
}

// When one leg fails, exposure reflects exactly the leg the broker
// accepted, and the caller sees the partial result.
func TestPartialLegFailureAccounting(t *testing.T) {
	broker := NewPaperBroker()
	broker.FailLegs = map[int]error{2: errors.New("venue rejected")}
	e := testExecutor(t, testTradingConfig(), broker)

	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentSubmitted, result.State)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, 1, result.Orders[0].Leg)
	assert.Equal(t, 150.0, result.AcceptedNotional)
	assert.Contains(t, result.Detail, "leg 2")

	snap := e.Exposure()
	assert.Equal(t, 150.0, snap.DailyNotionalUsed)
	assert.Equal(t, 150.0, snap.PerSymbolNotional["VIGL"])
}

func TestAllLegsFail(t *testing.T) {
	broker := NewPaperBroker()
	broker.FailSymbols = map[string]error{"VIGL": errors.New("halted")}
	e := testExecutor(t, testTradingConfig(), broker)

	_, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.Error(t, err)
	assert.Equal(t, 0.0, e.Exposure().DailyNotionalUsed, "no exposure for unplaced orders")

	// Headroom fully released: a retry can reserve the full amount
	broker.FailSymbols = nil
	result, err := e.SubmitBuyIntent(context.Background(), validIntent())
	require.NoError(t, err)
	assert.Equal(t, contracts.IntentSubmitted, result.State)
}

// Exposure accounting exactness: K successful submissions for one
// symbol total exactly their summed notional.
func TestExposureExactness(t *testing.T) {
	cfg := testTradingConfig()
	cfg.MaxTickerExposure = 1000
	e := testExecutor(t, cfg, NewPaperBroker())

	total := 0.0
	for _, amount := range []float64{100, 250, 150} {
		intent := validIntent()
		intent.USDAmount = amount
		result, err := e.SubmitBuyIntent(context.Background(), intent)
		require.NoError(t, err)
		require.Equal(t, contracts.IntentSubmitted, result.State)
		total += amount
	}

	assert.Equal(t, total, e.Exposure().PerSymbolNotional["VIGL"])
	assert.Equal(t, total, e.Exposure().DailyNotionalUsed)
}
