package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzchat-client/internal/app/session"
	"hzchat-client/internal/app/user"
	"hzchat-client/internal/configs"
	"hzchat-client/internal/pkg/auth/jwt"
	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/keystore"
	"hzchat-client/internal/pkg/limiter"
	"hzchat-client/internal/pkg/logx"
)

func init() {
	logx.SetOutput(io.Discard)
}

type stubSession struct {
	mu sync.Mutex

	view     session.View
	history  map[string][]session.Message
	err      error
	dmGroup  string
	sent     session.Message
	calls    []string
	tokens   []string
	tokenErr error
}

func (s *stubSession) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubSession) View() session.View { return s.view }

func (s *stubSession) History(group string) []session.Message { return s.history[group] }

func (s *stubSession) SelectGroup(_ context.Context, name string) error {
	if err := s.record("select:" + name); err != nil {
		return err
	}
	s.view.SelectedGroup = name
	s.view.GroupLabel = "current group: " + name
	return nil
}

func (s *stubSession) JoinOrCreateGroup(_ context.Context, name string) error {
	return s.record("join:" + name)
}

func (s *stubSession) RequestDirectMessageGroup(_ context.Context, userID string) (string, error) {
	if err := s.record("dm:" + userID); err != nil {
		return "", err
	}
	return s.dmGroup, nil
}

func (s *stubSession) SendMessage(_ context.Context, body string) (session.Message, error) {
	if err := s.record("send:" + body); err != nil {
		return session.Message{}, err
	}
	return s.sent, nil
}

func (s *stubSession) SetNickname(_ context.Context, nickname string) error {
	if err := s.record("nickname:" + nickname); err != nil {
		return err
	}
	s.view.SelfNickname = nickname
	return nil
}

func (s *stubSession) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)
	return s.tokenErr
}

type memStore struct {
	token string
	err   error
}

func (m *memStore) Load() (string, error) {
	if m.token == "" {
		return "", keystore.ErrNoToken
	}
	return m.token, nil
}

func (m *memStore) Save(token string) error {
	if m.err != nil {
		return m.err
	}
	m.token = token
	return nil
}

func (m *memStore) Erase() error {
	if m.err != nil {
		return m.err
	}
	m.token = ""
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newDeps(svc *stubSession, store *memStore) *AppDeps {
	return &AppDeps{
		Session: svc,
		Tokens:  store,
		Config:  &configs.AppConfig{Environment: "development"},
		Now:     func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestHealth(t *testing.T) {
	svc := &stubSession{view: session.View{Status: session.StatusConnecting}}
	code, env := do(t, Router(newDeps(svc, &memStore{})), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","service":"HZ Chat Client","connection":"connecting"}`, string(env.Data))
}

func TestGetView(t *testing.T) {
	svc := &stubSession{view: session.View{
		Status:     session.StatusDisconnected,
		Banner:     session.NotConnectedBanner,
		GroupLabel: session.NoGroupLabel,
		OtherUsers: []user.User{{ID: "u2", Nickname: "Bob"}},
	}}
	code, env := do(t, Router(newDeps(svc, &memStore{})), http.MethodGet, "/api/view", "")

	require.Equal(t, http.StatusOK, code)

	var v session.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "Not Connected", v.Banner)
	assert.Equal(t, "no group selected", v.GroupLabel)
	assert.Equal(t, []user.User{{ID: "u2", Nickname: "Bob"}}, v.OtherUsers)
}

func TestGroups(t *testing.T) {
	svc := &stubSession{
		view: session.View{Groups: []session.Group{{Name: "lobby"}}, GroupLabel: session.NoGroupLabel},
		history: map[string][]session.Message{
			"lobby": {{ID: "1", Group: "lobby", SenderID: "u2", Body: "hi"}},
		},
	}
	h := Router(newDeps(svc, &memStore{}))

	code, env := do(t, h, http.MethodGet, "/api/groups", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"groups":[{"name":"lobby"}],"selected":"","label":"no group selected"}`, string(env.Data))

	code, env = do(t, h, http.MethodPost, "/api/groups/join", `{"name":"dev"}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 0, env.Code)

	code, env = do(t, h, http.MethodPost, "/api/groups/select", `{"name":"lobby"}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"selected":"lobby","label":"current group: lobby"}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/groups/lobby/messages", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"body":"hi"`)

	assert.Equal(t, []string{"join:dev", "select:lobby"}, svc.calls)
}

func TestBadBodies(t *testing.T) {
	h := Router(newDeps(&stubSession{}, &memStore{}))

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "not json", body: `name=dev`, wantCode: errs.ErrInvalidJSONFormat},
		{name: "unknown field", body: `{"group":"dev"}`, wantCode: errs.ErrInvalidJSONFormat},
		{name: "two documents", body: `{"name":"a"}{"name":"b"}`, wantCode: errs.ErrExtraContentInBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, http.MethodPost, "/api/groups/join", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestSessionErrorsMapToEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{name: "not connected", err: errs.NewError(errs.ErrNotConnected), wantStatus: http.StatusServiceUnavailable, wantCode: errs.ErrNotConnected},
		{name: "no group", err: errs.NewError(errs.ErrNoGroupSelected), wantStatus: http.StatusUnprocessableEntity, wantCode: errs.ErrNoGroupSelected},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantCode: errs.ErrRequestTimeout},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: errs.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Router(newDeps(&stubSession{err: tt.err}, &memStore{}))

			code, env := do(t, h, http.MethodPost, "/api/messages", `{"body":"hi"}`)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestSendMessage(t *testing.T) {
	svc := &stubSession{sent: session.Message{TempID: "tmp_1", Group: "lobby", SenderID: "u1", Body: "hi", Pending: true}}
	code, env := do(t, Router(newDeps(svc, &memStore{})), http.MethodPost, "/api/messages", `{"body":"hi"}`)

	require.Equal(t, http.StatusOK, code)
	var m session.Message
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.True(t, m.Pending)
	assert.Equal(t, "tmp_1", m.TempID)
}

func TestDirectMessageAndNickname(t *testing.T) {
	svc := &stubSession{dmGroup: "dm-u1-u2"}
	h := Router(newDeps(svc, &memStore{}))

	code, env := do(t, h, http.MethodPost, "/api/users/u2/dm", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"group":"dm-u1-u2"}`, string(env.Data))

	code, env = do(t, h, http.MethodPost, "/api/nickname", `{"nickname":"Zed"}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"nickname":"Zed"}`, string(env.Data))

	assert.Equal(t, []string{"dm:u2", "nickname:Zed"}, svc.calls)
}

func token(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := &jwt.Claims{
		StandardClaims: gojwt.StandardClaims{Subject: "sub-1", ExpiresAt: expiresAt.Unix()},
		Name:           "Ada",
	}
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestSignIn(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	valid := token(t, now.Add(time.Hour))
	expired := token(t, now.Add(-time.Hour))

	t.Run("valid token is stored and applied", func(t *testing.T) {
		svc, store := &stubSession{}, &memStore{}
		code, env := do(t, Router(newDeps(svc, store)), http.MethodPost, "/api/auth/token", `{"token":"`+valid+`"}`)

		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(env.Data), `"displayName":"Ada"`)
		assert.Equal(t, valid, store.token)
		assert.Equal(t, []string{valid}, svc.tokens)
	})

	t.Run("expired token is refused", func(t *testing.T) {
		svc, store := &stubSession{}, &memStore{}
		code, env := do(t, Router(newDeps(svc, store)), http.MethodPost, "/api/auth/token", `{"token":"`+expired+`"}`)

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, errs.ErrTokenInvalid, env.Code)
		assert.Empty(t, store.token)
		assert.Empty(t, svc.tokens)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store := &stubSession{}, &memStore{err: errors.New("locked")}
		code, env := do(t, Router(newDeps(svc, store)), http.MethodPost, "/api/auth/token", `{"token":"`+valid+`"}`)

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, errs.ErrTokenStoreFailed, env.Code)
		assert.Empty(t, svc.tokens)
	})
}

func TestSignOut(t *testing.T) {
	svc, store := &stubSession{}, &memStore{token: "old"}
	code, _ := do(t, Router(newDeps(svc, store)), http.MethodDelete, "/api/auth/token", "")

	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, store.token)
	assert.Equal(t, []string{""}, svc.tokens)
}

func TestRateLimit(t *testing.T) {
	deps := newDeps(&stubSession{}, &memStore{})
	deps.Limiter = limiter.NewKeyedLimiter(0.001, 1)
	h := Router(deps)

	code, _ := do(t, h, http.MethodGet, "/api/view", "")
	assert.Equal(t, http.StatusOK, code)

	code, env := do(t, h, http.MethodGet, "/api/view", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, errs.ErrRateLimitExceeded, env.Code)
}

func TestNotFound(t *testing.T) {
	code, _ := do(t, Router(newDeps(&stubSession{}, &memStore{})), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}
