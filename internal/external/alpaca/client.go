package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
)

// Client talks to the Alpaca trading REST API. It implements
// execution.Broker via PlaceBracketOrder.
type Client struct {
	cfg        config.AlpacaConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new Alpaca REST client. Order placement must not
// be auto-retried after an ambiguous failure, so the client takes a
// non-retrying copy of the shared HTTP client.
func NewClient(cfg config.AlpacaConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient.WithoutRetry(),
		logger:     log,
	}
}

// Configured reports whether API credentials are present
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// bracket order request/response wire types
type takeProfitSpec struct {
	LimitPrice string `json:"limit_price"`
}

type stopLossSpec struct {
	StopPrice string `json:"stop_price"`
}

type orderRequest struct {
	Symbol      string          `json:"symbol"`
	Qty         string          `json:"qty"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	LimitPrice  string          `json:"limit_price"`
	TimeInForce string          `json:"time_in_force"`
	OrderClass  string          `json:"order_class"`
	TakeProfit  *takeProfitSpec `json:"take_profit"`
	StopLoss    *stopLossSpec   `json:"stop_loss"`
}

type orderResponse struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PlaceBracketOrder submits one bracket leg: a limit buy with an
// attached take-profit and stop-loss. Bracket orders take whole-share
// quantities, so the leg notional is floored to whole shares at the
// limit price.
func (c *Client) PlaceBracketOrder(ctx context.Context, order *contracts.BracketOrder) (*contracts.BracketOrder, error) {
	if order.LimitPrice <= 0 {
		return nil, fmt.Errorf("invalid limit price %.4f for %s", order.LimitPrice, order.Symbol)
	}

	qty := math.Floor(order.Notional / order.LimitPrice)
	if qty < 1 {
		return nil, fmt.Errorf("leg notional $%.2f buys less than one share of %s at $%.2f",
			order.Notional, order.Symbol, order.LimitPrice)
	}

	body := orderRequest{
		Symbol:      order.Symbol,
		Qty:         fmt.Sprintf("%.0f", qty),
		Side:        "buy",
		Type:        "limit",
		LimitPrice:  formatPrice(order.LimitPrice),
		TimeInForce: "day",
		OrderClass:  "bracket",
		TakeProfit:  &takeProfitSpec{LimitPrice: formatPrice(order.TakeProfitPrice)},
		StopLoss:    &stopLossSpec{StopPrice: formatPrice(order.StopPrice)},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order body: %w", err)
	}

	url := c.cfg.BaseURL + "/v2/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("order API error status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("order API error status %d: %s", resp.StatusCode, string(respBody))
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	placed := *order
	placed.ID = result.ID
	placed.Status = contracts.StatusSubmitted
	placed.CreatedAt = result.CreatedAt

	c.logger.WithFields(map[string]interface{}{
		"symbol":   order.Symbol,
		"order_id": result.ID,
		"qty":      qty,
		"limit":    order.LimitPrice,
		"leg":      order.Leg,
	}).Info("Bracket order placed")

	return &placed, nil
}

// CancelOrder cancels an open order by ID
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("%s/v2/orders/%s", c.cfg.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create cancel request: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancel order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cancel API error status %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.WithFields(map[string]interface{}{
		"order_id": orderID,
	}).Info("Order cancelled")
	return nil
}

// GetOrder fetches a single order's current broker state
func (c *Client) GetOrder(ctx context.Context, orderID string) (*orderResponse, error) {
	url := fmt.Sprintf("%s/v2/orders/%s", c.cfg.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create get order request: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get order API error status %d: %s", resp.StatusCode, string(respBody))
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &result, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
}

// formatPrice formats a price to the cent, which is what the API
// accepts for stocks above $1
func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
