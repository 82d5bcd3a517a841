package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

var upgrader = websocket.Upgrader{}

// streamServer accepts one connection, reads the auth and listen
// messages, then pushes the given raw frames.
func streamServer(t *testing.T, frames ...string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth streamMessage
		require.NoError(t, conn.ReadJSON(&auth))
		assert.Equal(t, "authenticate", auth.Action)

		var listen streamMessage
		require.NoError(t, conn.ReadJSON(&listen))
		assert.Equal(t, "listen", listen.Action)

		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"authorization","data":{"status":"authorized"}}`))
		for _, frame := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}

		// Keep the connection open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestStream(t *testing.T, url string) *Stream {
	t.Helper()
	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	return NewStream(config.AlpacaConfig{
		APIKey:    "k",
		APISecret: "s",
		StreamURL: url,
	}, logger.New(cfg))
}

func TestStreamFillEvent(t *testing.T) {
	url := streamServer(t,
		`{"stream":"trade_updates","data":{"event":"new","order":{"id":"ord-1","symbol":"VIGL"}}}`,
		`{"stream":"trade_updates","data":{"event":"fill","qty":"15","price":"10.05","timestamp":"2026-08-28T14:31:00Z","order":{"id":"ord-1","symbol":"VIGL"}}}`,
	)

	stream := newTestStream(t, url)
	fills := make(chan *contracts.Fill, 4)
	stream.OnFill(func(f *contracts.Fill) { fills <- f })

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()

	select {
	case fill := <-fills:
		assert.Equal(t, "ord-1", fill.OrderID)
		assert.Equal(t, "VIGL", fill.Symbol)
		assert.Equal(t, 15.0, fill.Qty)
		assert.Equal(t, 10.05, fill.Price)
		assert.Equal(t, 2026, fill.FilledAt.Year())
	case <-time.After(2 * time.Second):
		t.Fatal("no fill delivered")
	}

	// the "new" event must not have produced a fill
	select {
	case f := <-fills:
		t.Fatalf("unexpected extra fill: %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamPartialFillCountsAsFill(t *testing.T) {
	url := streamServer(t,
		`{"stream":"trade_updates","data":{"event":"partial_fill","qty":"5","price":"10.01","timestamp":"2026-08-28T14:31:00Z","order":{"id":"ord-2","symbol":"QUBT"}}}`,
	)

	stream := newTestStream(t, url)
	fills := make(chan *contracts.Fill, 1)
	stream.OnFill(func(f *contracts.Fill) { fills <- f })

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()

	select {
	case fill := <-fills:
		assert.Equal(t, 5.0, fill.Qty)
	case <-time.After(2 * time.Second):
		t.Fatal("no fill delivered")
	}
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	var conns atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg streamMessage
		conn.ReadJSON(&msg)
		conn.ReadJSON(&msg)

		// Drop the first connection without a close frame
		if conns.Add(1) == 1 {
			return
		}

		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"authorization","data":{"status":"authorized"}}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"trade_updates","data":{"event":"fill","qty":"15","price":"10.05","timestamp":"2026-08-28T14:31:00Z","order":{"id":"ord-3","symbol":"VIGL"}}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	stream := newTestStream(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	fills := make(chan *contracts.Fill, 1)
	stream.OnFill(func(f *contracts.Fill) { fills <- f })
	stream.OnError(func(error) {})

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()

	select {
	case fill := <-fills:
		assert.Equal(t, "ord-3", fill.OrderID)
	case <-time.After(5 * time.Second):
		t.Fatal("no fill delivered after reconnect")
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestStreamAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg streamMessage
		conn.ReadJSON(&msg)
		conn.ReadJSON(&msg)
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"authorization","data":{"status":"unauthorized"}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	stream := newTestStream(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	errs := make(chan error, 1)
	stream.OnError(func(err error) { errs <- err })

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "authorization failed")
	case <-time.After(2 * time.Second):
		t.Fatal("no auth error delivered")
	}
}
