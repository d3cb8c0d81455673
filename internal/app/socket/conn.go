/*
Package socket owns one websocket connection to the chat server.

This file defines Conn: it dials the server, runs the read and write pumps,
encodes outgoing events and forwards decoded inbound events to the owner's
event channel. Each Conn carries its own handler registry, so every handler
registered against a connection is released together with it.
*/
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzchat-client/internal/pkg/logx"
	"hzchat-client/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a Pong (or any frame) from the server.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame from the server.
	maxMessageSize = 64 << 10

	// sendBuffer is the capacity of the outgoing queue.
	sendBuffer = 256

	// handshakeTimeout bounds the websocket opening handshake.
	handshakeTimeout = 15 * time.Second

	// TunnelHeader makes the ngrok tunnel skip its browser interstitial page.
	TunnelHeader = "ngrok-skip-browser-warning"
)

var (
	// ErrClosed is returned when emitting on, or reading the error of, a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Emit when the outgoing queue is saturated.
	ErrSendQueueFull = errors.New("send queue full")
)

// Envelope is the wire frame: an event name and its JSON payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is an event read from a specific connection.
type Inbound struct {
	Conn     *Conn
	Envelope Envelope
}

// HandlerFunc handles the payload of one inbound event.
type HandlerFunc func(payload json.RawMessage) error

// DialOptions describes where and how to connect.
type DialOptions struct {
	// ServerURL is the chat server base URL (http, https, ws or wss).
	ServerURL string

	// Path is the websocket endpoint path on the server.
	Path string

	// Token is the optional bearer token sent as the token query parameter.
	Token string

	// Dialer overrides the websocket dialer.
	Dialer *websocket.Dialer
}

// Conn is one live connection to the chat server.
type Conn struct {
	// ID identifies this connection in logs.
	ID string

	// underlying WebSocket connection object.
	ws *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// events receives every decoded inbound frame.
	events chan<- Inbound

	// done is closed once the connection is shut down.
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error

	// handlers registered against this connection, keyed by event name.
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	logger zerolog.Logger
}

// Dial connects to the chat server and starts the pumps. Decoded inbound frames
// are delivered to events until the connection is closed.
func Dial(ctx context.Context, opts DialOptions, events chan<- Inbound) (*Conn, error) {
	endpoint, err := Endpoint(opts.ServerURL, opts.Path, opts.Token)
	if err != nil {
		return nil, err
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}

	headers := http.Header{}
	headers.Set(TunnelHeader, "any")

	ws, resp, err := dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (HTTP %d)", redact(endpoint), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", redact(endpoint), err)
	}

	c := newConn(ws, events)

	go c.writePump()
	go c.readPump()

	c.logger.Info().Str("endpoint", redact(endpoint)).Msg("Connected to chat server.")

	return c, nil
}

func newConn(ws *websocket.Conn, events chan<- Inbound) *Conn {
	id := randx.ConnectionID()

	return &Conn{
		ID:       id,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		events:   events,
		done:     make(chan struct{}),
		handlers: make(map[string]HandlerFunc),
		logger:   logx.Logger().With().Str("component", "socket").Str("conn_id", id).Logger(),
	}
}

// On registers h for event, replacing any previous handler for it.
func (c *Conn) On(event string, h HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers == nil {
		return
	}
	c.handlers[event] = h
}

// Off removes the handler for event.
func (c *Conn) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.handlers, event)
}

// OffAll removes every handler and refuses new registrations. It returns how
// many handlers were removed.
func (c *Conn) OffAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.handlers)
	c.handlers = nil
	return n
}

// Dispatch runs the handler registered for env.Type. It reports false when no
// handler is registered, which is always the case after OffAll.
func (c *Conn) Dispatch(env Envelope) (bool, error) {
	c.mu.RLock()
	h, ok := c.handlers[env.Type]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, h(env.Payload)
}

// Emit queues an event for the write pump. payload may be nil.
func (c *Conn) Emit(event string, payload any) error {
	env := Envelope{Type: event}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Payload = raw
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- frame:
		c.logger.Debug().Str("event", event).Msg("Queued outbound event.")
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Str("event", event).Msg("Send queue full, dropping event.")
		return ErrSendQueueFull
	}
}

// Done is closed when the connection is shut down for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close shuts the connection down with a normal closure frame.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

// shutdown records cause (first one wins) and tears the connection down once.
func (c *Conn) shutdown(cause error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = cause
	}
	c.errMu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)

		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.ws.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Failed to send close frame.")
		}

		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error.")
		}

		c.logger.Info().AnErr("cause", cause).Msg("Connection closed.")
	})
}

// readPump decodes frames and forwards them until the connection fails or closes.
func (c *Conn) readPump() {
	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.shutdown(fmt.Errorf("set read deadline: %w", err))
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Server connection lost.")
			}
			c.shutdown(fmt.Errorf("read: %w", err))
			return
		}

		if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.shutdown(fmt.Errorf("set read deadline: %w", err))
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.Type == "" {
			c.logger.Warn().Err(err).Bytes("frame", frame).Msg("Server sent an undecodable frame.")
			continue
		}

		select {
		case c.events <- Inbound{Conn: c, Envelope: env}:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown(fmt.Errorf("set write deadline: %w", err))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.shutdown(fmt.Errorf("ping: %w", err))
				return
			}

		case <-c.done:
			return
		}
	}
}
