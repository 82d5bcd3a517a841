package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	log := logger.New(cfg)

	alpacaCfg := config.AlpacaConfig{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   server.URL,
	}
	// The shared client retries; NewClient must take a non-retrying copy
	shared := httputil.New(cfg, log).WithRetry(3, time.Millisecond)
	return NewClient(alpacaCfg, shared, log)
}

func sampleLeg() *contracts.BracketOrder {
	return &contracts.BracketOrder{
		Symbol:          "VIGL",
		Notional:        150,
		LimitPrice:      10.0,
		TakeProfitPrice: 12.0,
		StopPrice:       9.0,
		Leg:             1,
		Status:          contracts.StatusPending,
	}
}

func TestPlaceBracketOrder(t *testing.T) {
	var captured orderRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "test-secret", r.Header.Get("APCA-API-SECRET-KEY"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{
			ID:     "ord-123",
			Symbol: "VIGL",
			Status: "accepted",
		})
	})

	placed, err := client.PlaceBracketOrder(context.Background(), sampleLeg())
	require.NoError(t, err)

	assert.Equal(t, "ord-123", placed.ID)
	assert.Equal(t, contracts.StatusSubmitted, placed.Status)

	// $150 at $10 limit floors to 15 whole shares
	assert.Equal(t, "15", captured.Qty)
	assert.Equal(t, "bracket", captured.OrderClass)
	assert.Equal(t, "limit", captured.Type)
	assert.Equal(t, "10.00", captured.LimitPrice)
	require.NotNil(t, captured.TakeProfit)
	assert.Equal(t, "12.00", captured.TakeProfit.LimitPrice)
	require.NotNil(t, captured.StopLoss)
	assert.Equal(t, "9.00", captured.StopLoss.StopPrice)
}

func TestPlaceBracketOrderSubShareNotional(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	leg := sampleLeg()
	leg.Notional = 5 // less than one $10 share

	_, err := client.PlaceBracketOrder(context.Background(), leg)
	assert.Error(t, err)
}

func TestPlaceBracketOrderAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(apiError{Code: 40310000, Message: "insufficient buying power"})
	})

	_, err := client.PlaceBracketOrder(context.Background(), sampleLeg())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient buying power")
}

func TestPlaceBracketOrderServerErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.PlaceBracketOrder(context.Background(), sampleLeg())
	require.Error(t, err)

	// A broker 5xx is ambiguous; re-submitting could double-place
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCancelOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/orders/ord-123", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.CancelOrder(context.Background(), "ord-123"))
}

func TestConfigured(t *testing.T) {
	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	log := logger.New(cfg)

	c := NewClient(config.AlpacaConfig{}, httputil.New(cfg, log), log)
	assert.False(t, c.Configured())

	c = NewClient(config.AlpacaConfig{APIKey: "k", APISecret: "s"}, httputil.New(cfg, log), log)
	assert.True(t, c.Configured())
}
