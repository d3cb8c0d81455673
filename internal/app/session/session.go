/*
Package session owns the client's connection to the chat server and reconciles
the server's event feed into client state.

A Session runs everything on one goroutine (Run): inbound events, user actions,
request timeouts and reconnects are all serialized there, so no two handlers
ever execute concurrently. Readers take snapshots through View and History.

State is split the way the chat UI thinks about it:
  - the Identity Resolver learns who we are on each connection,
  - the Roster Store accumulates the other users, never including self,
  - the Group/Message Channel tracks known groups, the selected one and
    per-group message histories.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"hzchat-client/internal/app/socket"
	"hzchat-client/internal/pkg/auth/jwt"
	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/limiter"
	"hzchat-client/internal/pkg/logx"
)

// Status is the connection state shown to the user.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Reasons attached to StatusDisconnected.
const (
	ReasonNotStarted      = "not started"
	ReasonDialFailed      = "could not reach the chat server"
	ReasonConnectionLost  = "connection lost"
	ReasonIdentityTimeout = "server did not identify us"
	ReasonReauthenticated = "sign-in changed"
	ReasonShutdown        = "shut down"
)

const (
	eventBuffer = 64

	defaultRequestTimeout = 5 * time.Second
	defaultRequestRetries = 2
	defaultSweepInterval  = 250 * time.Millisecond
	defaultDialTimeout    = 10 * time.Second
	defaultReconnectBase  = 500 * time.Millisecond
	defaultReconnectMax   = 30 * time.Second
	defaultSendRate       = 2
	defaultSendBurst      = 5

	reconnectJitterPercent = 20
)

// Options configures a Session. Zero values take defaults.
type Options struct {
	// ServerURL and SocketPath locate the chat server's websocket endpoint.
	ServerURL  string
	SocketPath string

	// Token is the initial bearer token; empty connects signed out.
	Token string

	// RequestTimeout bounds each attempt of a tracked request, and
	// RequestRetries is how many times it is re-sent before giving up.
	RequestTimeout time.Duration
	RequestRetries int

	// SweepInterval is how often overdue requests are checked.
	SweepInterval time.Duration

	DialTimeout   time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	// SendRate (messages per second) and SendBurst limit sending per group.
	SendRate  float64
	SendBurst int

	Dialer *websocket.Dialer

	// Now replaces the clock in tests.
	Now func() time.Time
}

func (o *Options) withDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.RequestRetries < 0 {
		o.RequestRetries = 0
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultSweepInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = defaultReconnectBase
	}
	if o.ReconnectMax < o.ReconnectBase {
		o.ReconnectMax = max(defaultReconnectMax, o.ReconnectBase)
	}
	if o.SendRate <= 0 {
		o.SendRate = defaultSendRate
	}
	if o.SendBurst <= 0 {
		o.SendBurst = defaultSendBurst
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type command struct {
	fn   func()
	done chan struct{}
}

// Session is the top-level owner of the chat connection and all client state.
type Session struct {
	opts   Options
	logger zerolog.Logger

	// events receives frames from every connection this session dials.
	events chan socket.Inbound

	// commands carries user actions into the Run goroutine.
	commands chan command

	// reauth is signalled when the bearer token changes.
	reauth chan struct{}

	// stopped is closed when Run returns.
	stopped   chan struct{}
	startOnce sync.Once

	// Owned by the Run goroutine.
	conn       *socket.Conn
	connToken  string
	pending    *pendingRequests
	reconnect  retry.Backoff
	retryTimer *time.Timer

	sendLimiter *limiter.KeyedLimiter
	dmFlight    singleflight.Group
	hist        histories

	// mu guards everything below.
	mu          sync.RWMutex
	status      Status
	reason      string
	token       string
	claims      *jwt.Claims
	authProblem string
	nickname    string
	identity    identityResolver
	roster      roster
	channel     channel
	lastErr     *ErrorInfo
}

// New validates opts and returns a Session that is not yet connected.
func New(opts Options) (*Session, error) {
	opts.withDefaults()

	if _, err := socket.Endpoint(opts.ServerURL, opts.SocketPath, ""); err != nil {
		return nil, fmt.Errorf("invalid chat server address: %w", err)
	}

	s := &Session{
		opts:        opts,
		logger:      logx.Component("session"),
		events:      make(chan socket.Inbound, eventBuffer),
		commands:    make(chan command),
		reauth:      make(chan struct{}, 1),
		stopped:     make(chan struct{}),
		pending:     newPendingRequests(opts.RequestTimeout, opts.RequestRetries),
		sendLimiter: limiter.NewKeyedLimiter(rate.Limit(opts.SendRate), opts.SendBurst),
		hist:        newHistories(),
		status:      StatusDisconnected,
		reason:      ReasonNotStarted,
	}
	s.reconnect = s.newReconnectBackoff()
	s.applyToken(strings.TrimSpace(opts.Token))

	return s, nil
}

func (s *Session) newReconnectBackoff() retry.Backoff {
	b := retry.NewExponential(s.opts.ReconnectBase)
	b = retry.WithCappedDuration(s.opts.ReconnectMax, b)
	return retry.WithJitterPercent(reconnectJitterPercent, b)
}

// Run connects and serves the session until ctx is done. It may be called once.
func (s *Session) Run(ctx context.Context) error {
	started := false
	s.startOnce.Do(func() { started = true })
	if !started {
		return errors.New("session already running")
	}
	defer close(s.stopped)

	sweep := time.NewTicker(s.opts.SweepInterval)
	defer sweep.Stop()

	s.logger.Info().Str("server_url", s.opts.ServerURL).Msg("Session started.")
	s.connect(ctx)

	for {
		var connDone <-chan struct{}
		if s.conn != nil {
			connDone = s.conn.Done()
		}

		var retryC <-chan time.Time
		if s.retryTimer != nil {
			retryC = s.retryTimer.C
		}

		select {
		case <-ctx.Done():
			s.stopRetry()
			s.teardown(ReasonShutdown)
			s.logger.Info().Msg("Session stopped.")
			return nil

		case in := <-s.events:
			s.dispatch(in)

		case cmd := <-s.commands:
			cmd.fn()
			close(cmd.done)

		case <-connDone:
			s.logger.Warn().AnErr("cause", s.conn.Err()).Msg("Lost connection to chat server.")
			s.teardown(ReasonConnectionLost)
			s.scheduleReconnect()

		case <-retryC:
			s.retryTimer = nil
			s.connect(ctx)

		case <-s.reauth:
			if s.conn != nil && s.dialToken() == s.connToken {
				continue
			}
			s.stopRetry()
			s.teardown(ReasonReauthenticated)
			s.resetState()
			s.reconnect = s.newReconnectBackoff()
			s.connect(ctx)

		case <-sweep.C:
			s.sweep()
		}
	}
}

// connect dials the server, registers this session's handlers on the new
// connection and asks who we are.
func (s *Session) connect(ctx context.Context) {
	token := s.dialToken()
	s.setStatus(StatusConnecting, "")

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	conn, err := socket.Dial(dialCtx, socket.DialOptions{
		ServerURL: s.opts.ServerURL,
		Path:      s.opts.SocketPath,
		Token:     token,
		Dialer:    s.opts.Dialer,
	}, s.events)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Msg("Failed to connect to chat server.")
		s.setStatus(StatusDisconnected, ReasonDialFailed)
		s.scheduleReconnect()
		return
	}

	s.register(conn)
	s.conn = conn
	s.connToken = token

	s.mu.Lock()
	s.status = StatusConnected
	s.reason = ""
	due := s.identity.begin()
	s.mu.Unlock()

	s.logger.Info().Str("conn_id", conn.ID).Bool("signed_in", token != "").Msg("Connected. Awaiting identity.")

	if due {
		if err := s.track(&request{event: RequestMyID, expect: EventMyID}); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to request identity.")
		}
	}
}

// teardown releases the current connection: handlers first, then the socket.
// Waiters of tracked requests fail with ErrNotConnected.
func (s *Session) teardown(reason string) {
	conn := s.conn
	if conn == nil {
		s.setStatus(StatusDisconnected, reason)
		return
	}

	s.conn = nil
	s.connToken = ""

	removed := conn.OffAll()
	if err := conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error.")
	}

	failed := s.pending.failAll(errs.NewError(errs.ErrNotConnected))

	s.mu.Lock()
	s.identity.reset()
	s.roster.reset()
	s.status = StatusDisconnected
	s.reason = reason
	s.mu.Unlock()

	s.logger.Info().
		Str("conn_id", conn.ID).
		Str("reason", reason).
		Int("handlers_removed", removed).
		Int("requests_failed", failed).
		Msg("Connection torn down.")
}

// resetState forgets everything tied to the previous sign-in.
func (s *Session) resetState() {
	s.mu.Lock()
	s.identity = identityResolver{}
	s.roster.reset()
	s.channel.reset()
	s.nickname = ""
	s.lastErr = nil
	s.mu.Unlock()

	s.hist.clear()
}

func (s *Session) scheduleReconnect() {
	delay, stop := s.reconnect.Next()
	if stop {
		delay = s.opts.ReconnectMax
	}

	s.stopRetry()
	s.retryTimer = time.NewTimer(delay)

	s.logger.Info().Dur("delay", delay).Msg("Scheduling reconnect.")
}

func (s *Session) stopRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// dispatch hands in to the handler registered on its connection. Frames from a
// connection that is no longer current are dropped.
func (s *Session) dispatch(in socket.Inbound) {
	if in.Conn != s.conn || s.conn == nil {
		s.logger.Debug().Str("event", in.Envelope.Type).Str("conn_id", in.Conn.ID).Msg("Dropping event from stale connection.")
		return
	}

	handled, err := in.Conn.Dispatch(in.Envelope)
	if !handled {
		s.logger.Debug().Str("event", in.Envelope.Type).Msg("No handler for event.")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event", in.Envelope.Type).Msg("Malformed event ignored.")
	}
}

// sweep re-sends overdue requests and fails the exhausted ones. An identity
// request that runs out of attempts recycles the connection.
func (s *Session) sweep() {
	now := s.opts.Now()
	s.sendLimiter.Sweep(now)

	resend, failed := s.pending.due(now)

	for _, r := range resend {
		s.logger.Debug().Str("event", r.event).Int("attempt", r.attempts).Msg("No response yet. Re-sending.")
		if err := s.emit(r.event, r.payload); err != nil {
			s.logger.Warn().Err(err).Str("event", r.event).Msg("Re-send failed.")
		}
	}

	identityLost := false
	for _, r := range failed {
		err := errs.NewError(errs.ErrRequestTimeout, r.event)
		r.finish(result{err: err})
		s.fail(err)

		s.logger.Warn().Str("event", r.event).Int("attempts", r.attempts).Msg("Request timed out.")

		if r.event == RequestMyID {
			identityLost = true
		}
	}

	if identityLost && s.conn != nil {
		s.teardown(ReasonIdentityTimeout)
		s.scheduleReconnect()
	}
}

// track emits r and starts its timeout.
func (s *Session) track(r *request) error {
	if err := s.emit(r.event, r.payload); err != nil {
		return err
	}
	s.pending.add(r, s.opts.Now())
	return nil
}

func (s *Session) emit(event string, payload any) error {
	if s.conn == nil {
		return errs.NewError(errs.ErrNotConnected)
	}

	if err := s.conn.Emit(event, payload); err != nil {
		if errors.Is(err, socket.ErrClosed) {
			return errs.NewError(errs.ErrNotConnected)
		}
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// exec runs fn on the Run goroutine and waits for it.
func (s *Session) exec(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return errs.NewError(errs.ErrNotConnected)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetToken replaces the bearer token. A change tears the current connection
// down and reconnects with the new token; an expired or malformed token is
// kept for display but not sent, and ErrTokenInvalid is returned.
func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)

	s.mu.RLock()
	unchanged := token == s.token
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	problem := s.applyToken(token)

	select {
	case s.reauth <- struct{}{}:
	default:
	}

	if problem != "" {
		return errs.NewError(errs.ErrTokenInvalid)
	}
	return nil
}

func (s *Session) applyToken(token string) string {
	var (
		claims  *jwt.Claims
		problem string
	)
	if token != "" {
		c, err := jwt.Inspect(token, s.opts.Now())
		if err != nil {
			problem = err.Error()
			s.logger.Warn().Err(err).Msg("Bearer token rejected. Connecting signed out.")
		} else {
			claims = c
		}
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.authProblem = problem
	s.mu.Unlock()

	return problem
}

// dialToken is the token to attach to the next connection.
func (s *Session) dialToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.authProblem != "" {
		return ""
	}
	return s.token
}

func (s *Session) setStatus(status Status, reason string) {
	s.mu.Lock()
	s.status = status
	s.reason = reason
	s.mu.Unlock()
}

// fail records err as the last user-visible error.
func (s *Session) fail(err *errs.CustomError) {
	s.mu.Lock()
	s.lastErr = &ErrorInfo{Code: err.Code, Message: err.Message, At: s.opts.Now()}
	s.mu.Unlock()
}
