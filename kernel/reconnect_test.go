package kernel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xconnect/xerrors"
)

// echoCodec is a minimal Codec for reconnect tests: subscriptions are
// newline-joined plain strings, and every inbound frame decodes to its
// own string content.
type echoCodec struct{}

func (echoCodec) EncodeSubscription(streams []string) (Frame, error) {
	return Frame(strings.Join(streams, "\n")), nil
}

func (echoCodec) EncodeUnsubscription(streams []string) (Frame, error) {
	return Frame("UNSUB:" + strings.Join(streams, "\n")), nil
}

func (echoCodec) DecodeMessage(raw []byte) (any, error) {
	return string(raw), nil
}

// wsTestServer records every subscribe frame it receives and can be told
// to drop the current connection to simulate a disconnect.
type wsTestServer struct {
	mu       sync.Mutex
	received []string
	server   *httptest.Server
	conn     *websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := &wsTestServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ts.mu.Lock()
			ts.received = append(ts.received, string(msg))
			ts.mu.Unlock()
		}
	}))
	return ts
}

func (ts *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http")
}

func (ts *wsTestServer) dropConnection() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.conn != nil {
		ts.conn.Close()
	}
}

func (ts *wsTestServer) receivedSnapshot() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]string, len(ts.received))
	copy(out, ts.received)
	return out
}

func (ts *wsTestServer) close() {
	ts.server.Close()
}

// ============================================================
// ReconnectingSession
// ============================================================

func TestReconnectingSession_ReplaysSubscriptionsAfterReconnect(t *testing.T) {
	ts := newWSTestServer(t)
	defer ts.close()

	cfg := ReconnectConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, MaxAttempts: 5, AutoResubscribe: true}
	rs := NewReconnectingSession("testvenue", func() *WSSession {
		return NewWSSession("testvenue", ts.wsURL(), echoCodec{})
	}, cfg)

	ctx := context.Background()
	require.NoError(t, rs.Connect(ctx))
	require.NoError(t, rs.Subscribe([]string{"btcusdt@trade", "ethusdt@trade"}))

	require.Eventually(t, func() bool {
		return len(ts.receivedSnapshot()) >= 2
	}, time.Second, 5*time.Millisecond)
	beforeDrop := len(ts.receivedSnapshot())

	ts.dropConnection()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	// The dropped connection surfaces as a closed-socket error from this
	// NextMessage call, which triggers the internal reconnect-and-replay
	// path before NextMessage loops back to read from the new connection.
	_, _ = rs.NextMessage(readCtx)

	require.Eventually(t, func() bool {
		received := ts.receivedSnapshot()
		if len(received) < beforeDrop+2 {
			return false
		}
		replayed := received[beforeDrop:]
		return containsAll(replayed, "btcusdt@trade", "ethusdt@trade")
	}, 2*time.Second, 10*time.Millisecond, "reconnect should replay the active subscription set")

	rs.Close()
}

func TestReconnectingSession_TerminalAfterMaxAttempts(t *testing.T) {
	cfg := ReconnectConfig{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxAttempts: 2, AutoResubscribe: false}

	// newSess always builds a session pointed at an address nothing is
	// listening on, so every reconnect attempt fails to dial.
	rs := NewReconnectingSession("testvenue", func() *WSSession {
		return NewWSSession("testvenue", "ws://127.0.0.1:1/closed", echoCodec{})
	}, cfg)

	ctx := context.Background()
	// Connect fails too (nothing listening), but NextMessage should still
	// converge on a terminal error once MaxAttempts is exceeded, since a
	// session with no open connection surfaces as a closed error on the
	// first NextMessage call, which is retryable.
	_ = rs.Connect(ctx)

	readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := rs.NextMessage(readCtx)
	require.Error(t, err)

	exchErr, ok := err.(*xerrors.ExchangeError)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindWebSocketClosed, exchErr.Kind)
}

func containsAll(haystack []string, wants ...string) bool {
	for _, want := range wants {
		found := false
		for _, s := range haystack {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestReconnectConfig_Defaults(t *testing.T) {
	cfg := DefaultReconnectConfig()
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.True(t, cfg.AutoResubscribe)
}
