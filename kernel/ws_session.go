package kernel

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"xconnect/telemetry"
	"xconnect/xerrors"
)

// SessionState tracks a WSSession's lifecycle.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateClosed
)

// WSSession is a single WebSocket connection wrapped with a Codec. It
// keeps the set of active stream identifiers so a ReconnectingSession can
// replay them after a reconnect.
type WSSession struct {
	venue string
	url   string
	codec Codec
	conn  *websocket.Conn

	mu     sync.Mutex
	state  SessionState
	active map[string]struct{}
}

// NewWSSession builds a WSSession bound to url using codec for
// encode/decode. The connection is not opened until Connect is called.
func NewWSSession(venue, url string, codec Codec) *WSSession {
	return &WSSession{
		venue:  venue,
		url:    url,
		codec:  codec,
		state:  StateDisconnected,
		active: make(map[string]struct{}),
	}
}

// Connect dials the underlying socket.
func (s *WSSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		telemetry.WSConnectionsTotal.WithLabelValues(s.venue, "failed").Inc()
		return xerrors.New(xerrors.KindNetworkError, s.venue, "websocket connect failed: "+err.Error())
	}

	conn.SetPingHandler(func(payload string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(5*time.Second))
	})

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	telemetry.WSConnectionsTotal.WithLabelValues(s.venue, "success").Inc()
	telemetry.WSActiveConnections.WithLabelValues(s.venue).Inc()
	return nil
}

// Subscribe encodes and sends a subscription frame for streams, and
// records them as active so a reconnect can replay them.
func (s *WSSession) Subscribe(streams []string) error {
	frame, err := s.codec.EncodeSubscription(streams)
	if err != nil {
		return xerrors.Wrap(err, s.venue+": failed to encode subscription")
	}
	if err := s.send(frame); err != nil {
		return err
	}

	s.mu.Lock()
	for _, stream := range streams {
		s.active[stream] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

// Unsubscribe encodes and sends an unsubscription frame, removing
// streams from the active set so a later reconnect does not replay them.
func (s *WSSession) Unsubscribe(streams []string) error {
	frame, err := s.codec.EncodeUnsubscription(streams)
	if err != nil {
		return xerrors.Wrap(err, s.venue+": failed to encode unsubscription")
	}
	if err := s.send(frame); err != nil {
		return err
	}

	s.mu.Lock()
	for _, stream := range streams {
		delete(s.active, stream)
	}
	s.mu.Unlock()
	return nil
}

// ActiveStreams returns a snapshot of the currently subscribed stream
// identifiers.
func (s *WSSession) ActiveStreams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	streams := make([]string, 0, len(s.active))
	for stream := range s.active {
		streams = append(streams, stream)
	}
	return streams
}

// send writes frame as a single WebSocket text message, except that a
// frame containing embedded newlines (only Hyperliquid's codec emits
// these, since its protocol has no batched-subscribe form and needs one
// message per descriptor) is split and written as one message per line.
func (s *WSSession) send(frame Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return xerrors.New(xerrors.KindWebSocketError, s.venue, "session not connected")
	}
	for _, line := range bytes.Split(frame, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			return xerrors.New(xerrors.KindWebSocketError, s.venue, "failed to write frame: "+err.Error())
		}
	}
	return nil
}

// NextMessage blocks for the next decoded application message. A nil
// value with a nil error means the underlying frame decoded to nothing
// (e.g. an ack) and the caller should call NextMessage again. A non-nil
// error means the session closed or failed; the caller should treat this
// as terminal for this session (a ReconnectingSession reconnects).
func (s *WSSession) NextMessage() (any, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil, xerrors.New(xerrors.KindWebSocketClosed, s.venue, "session not connected")
	}

	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		telemetry.WSActiveConnections.WithLabelValues(s.venue).Dec()
		return nil, xerrors.New(xerrors.KindWebSocketClosed, s.venue, "connection closed: "+err.Error())
	}

	if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
		return nil, nil
	}

	decoded, err := s.codec.DecodeMessage(raw)
	if err != nil {
		return nil, xerrors.New(xerrors.KindDeserializationError, s.venue, "failed to decode message: "+err.Error())
	}
	if decoded != nil {
		telemetry.WSMessagesTotal.WithLabelValues(s.venue, "decoded").Inc()
	}
	return decoded, nil
}

// Close closes the underlying connection.
func (s *WSSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.state = StateClosed
	err := s.conn.Close()
	s.conn = nil
	return err
}

// State returns the session's current lifecycle state.
func (s *WSSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
