package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

const (
	pingInterval          = 30 * time.Second
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 30 * time.Second
	maxReconnectAttempts  = 10
)

// Stream consumes the Alpaca trade-updates WebSocket. Fill events are
// handed to the registered callback; everything else is logged and
// dropped.
type Stream struct {
	cfg    config.AlpacaConfig
	logger *logger.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	onFill  func(*contracts.Fill)
	onError func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStream creates a trade-updates stream client
func NewStream(cfg config.AlpacaConfig, log *logger.Logger) *Stream {
	return &Stream{
		cfg:    cfg,
		logger: log,
		stopCh: make(chan struct{}),
	}
}

// Callback setters
func (s *Stream) OnFill(fn func(*contracts.Fill)) { s.onFill = fn }
func (s *Stream) OnError(fn func(error))          { s.onError = fn }

// Connect dials the stream, authenticates, subscribes to trade updates,
// and starts the read and ping loops
func (s *Stream) Connect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	s.logger.Info("Trade-updates stream connected")
	return nil
}

func (s *Stream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.StreamURL, nil)
	if err != nil {
		return err
	}

	auth := streamMessage{
		Action: "authenticate",
		Data: map[string]string{
			"key_id":     s.cfg.APIKey,
			"secret_key": s.cfg.APISecret,
		},
	}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("send auth: %w", err)
	}

	listen := streamMessage{
		Action: "listen",
		Data: map[string]interface{}{
			"streams": []string{"trade_updates"},
		},
	}
	if err := conn.WriteJSON(listen); err != nil {
		conn.Close()
		return fmt.Errorf("send listen: %w", err)
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect closes the connection and stops the loops
func (s *Stream) Disconnect() error {
	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.connected = false
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.logger.Info("Trade-updates stream disconnected")
	return nil
}

// IsConnected returns connection status
func (s *Stream) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connected
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect() {
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if s.onError != nil {
				s.onError(fmt.Errorf("read error: %w", err))
			}
			s.handleDisconnect()
			if !s.reconnect() {
				return
			}
			continue
		}

		s.handleMessage(message)
	}
}

func (s *Stream) handleMessage(data []byte) {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.WithError(err).Debug("Unparseable stream message")
		return
	}

	switch envelope.Stream {
	case "authorization":
		var auth struct {
			Status string `json:"status"`
		}
		if json.Unmarshal(envelope.Data, &auth) == nil && auth.Status != "authorized" {
			if s.onError != nil {
				s.onError(fmt.Errorf("stream authorization failed: %s", auth.Status))
			}
		}
	case "trade_updates":
		s.handleTradeUpdate(envelope.Data)
	}
}

func (s *Stream) handleTradeUpdate(data []byte) {
	var update tradeUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		s.logger.WithError(err).Debug("Unparseable trade update")
		return
	}

	// Partial fills mutate exposure the same way full fills do
	if update.Event != "fill" && update.Event != "partial_fill" {
		s.logger.WithFields(map[string]interface{}{
			"event":    update.Event,
			"order_id": update.Order.ID,
		}).Debug("Trade update ignored")
		return
	}

	qty, _ := strconv.ParseFloat(update.Qty, 64)
	price, _ := strconv.ParseFloat(update.Price, 64)

	fill := &contracts.Fill{
		OrderID:  update.Order.ID,
		Symbol:   update.Order.Symbol,
		Qty:      qty,
		Price:    price,
		FilledAt: update.Timestamp,
	}

	if s.onFill != nil {
		s.onFill(fill)
	}
}

func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.connMu.Unlock()
					s.logger.WithError(err).Warn("Stream ping failed")
					// Closing the conn fails the read loop, which
					// owns reconnection
					s.handleDisconnect()
					continue
				}
			}
			s.connMu.Unlock()
		}
	}
}

func (s *Stream) handleDisconnect() {
	s.connMu.Lock()
	s.connected = false
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// reconnect re-dials with exponential backoff. It runs inside the read
// loop's goroutine, so the loops survive the new connection. Returns
// false when the stream is stopping or attempts are exhausted.
func (s *Stream) reconnect() bool {
	delay := reconnectInitialDelay

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-s.stopCh:
			return false
		case <-time.After(delay):
		}

		s.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
		}).Info("Attempting stream reconnection")

		if err := s.connect(context.Background()); err != nil {
			delay = delay * 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		select {
		case <-s.stopCh:
			// Stopped while the dial was in flight
			s.handleDisconnect()
			return false
		default:
		}

		s.logger.Info("Stream reconnected")
		return true
	}

	if s.onError != nil {
		s.onError(fmt.Errorf("stream reconnect failed after %d attempts", maxReconnectAttempts))
	}
	return false
}

// Wire types

type streamMessage struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data"`
}

type tradeUpdate struct {
	Event     string    `json:"event"`
	Qty       string    `json:"qty"`
	Price     string    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Order     struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	} `json:"order"`
}
