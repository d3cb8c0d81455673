package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"hzchat-client/internal/app/socket"
	"hzchat-client/internal/pkg/logx"
)

const waitFor = 3 * time.Second
const tick = 5 * time.Millisecond

func init() {
	logx.SetOutput(io.Discard)
}

// fakeConn is the server side of one client connection.
type fakeConn struct {
	ws    *websocket.Conn
	token string
	mu    sync.Mutex
}

func (c *fakeConn) push(t *testing.T, event string, payload any) {
	t.Helper()
	require.NoError(t, c.send(event, payload))
}

// send is push for server goroutines, which must not fail the test.
func (c *fakeConn) send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(socket.Envelope{Type: event, Payload: raw})
}

func (c *fakeConn) hangup() {
	c.ws.Close()
}

type frame struct {
	conn *fakeConn
	env  socket.Envelope
}

func (f frame) text(t *testing.T) string {
	t.Helper()

	var s string
	require.NoError(t, json.Unmarshal(f.env.Payload, &s))
	return s
}

type fakeOptions struct {
	// identity answers getMyId when set.
	identity any

	// onFrame runs for every frame after it is recorded.
	onFrame func(c *fakeConn, env socket.Envelope)
}

// fakeServer is a scripted chat server speaking the JSON envelope protocol.
type fakeServer struct {
	*httptest.Server
	opts fakeOptions

	mu     sync.Mutex
	conns  []*fakeConn
	frames []frame
}

func newFakeServer(t *testing.T, opts fakeOptions) *fakeServer {
	t.Helper()

	f := &fakeServer{opts: opts}
	upgrader := websocket.Upgrader{}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		c := &fakeConn{ws: ws, token: r.URL.Query().Get("token")}
		f.mu.Lock()
		f.conns = append(f.conns, c)
		f.mu.Unlock()

		defer ws.Close()
		for {
			var env socket.Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}

			f.mu.Lock()
			f.frames = append(f.frames, frame{conn: c, env: env})
			f.mu.Unlock()

			if env.Type == RequestMyID && f.opts.identity != nil {
				_ = c.send(EventMyID, f.opts.identity)
			}
			if f.opts.onFrame != nil {
				f.opts.onFrame(c, env)
			}
		}
	}))
	t.Cleanup(f.Close)

	return f
}

// conn waits for the i-th accepted connection.
func (f *fakeServer) conn(t *testing.T, i int) *fakeConn {
	t.Helper()

	var c *fakeConn
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.conns) > i {
			c = f.conns[i]
			return true
		}
		return false
	}, waitFor, tick, "connection %d never arrived", i)
	return c
}

func (f *fakeServer) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// received returns the frames of the given type in arrival order.
func (f *fakeServer) received(event string) []frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []frame
	for _, fr := range f.frames {
		if fr.env.Type == event {
			out = append(out, fr)
		}
	}
	return out
}

// types lists every received frame type in arrival order.
func (f *fakeServer) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, fr.env.Type)
	}
	return out
}

// await waits until at least n frames of the given type were received.
func (f *fakeServer) await(t *testing.T, event string, n int) []frame {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(f.received(event)) >= n
	}, waitFor, tick, "expected %d %q frames, got %v", n, event, f.types())
	return f.received(event)
}

func testOptions(f *fakeServer) Options {
	return Options{
		ServerURL:      f.URL,
		SocketPath:     "/ws",
		RequestTimeout: 2 * time.Second,
		RequestRetries: 1,
		SweepInterval:  10 * time.Millisecond,
		DialTimeout:    time.Second,
		ReconnectBase:  20 * time.Millisecond,
		ReconnectMax:   100 * time.Millisecond,
	}
}

// start runs a session against f until the test ends.
func start(t *testing.T, f *fakeServer, mutate ...func(*Options)) *Session {
	t.Helper()

	opts := testOptions(f)
	for _, m := range mutate {
		m(&opts)
	}

	s, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return s
}

// identified starts a session and waits until f has been asked for the roster.
func identified(t *testing.T, f *fakeServer, mutate ...func(*Options)) (*Session, *fakeConn) {
	t.Helper()

	s := start(t, f, mutate...)
	f.await(t, RequestAllUsers, 1)
	return s, f.conn(t, 0)
}

// barrier pushes a throwaway group and waits for it, so every event pushed
// before it on c has been handled.
func barrier(t *testing.T, s *Session, c *fakeConn, name string) {
	t.Helper()

	c.push(t, EventNewGroup, map[string]string{"name": name})
	require.Eventually(t, func() bool {
		for _, g := range s.View().Groups {
			if g.Name == name {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)
	return ctx
}
