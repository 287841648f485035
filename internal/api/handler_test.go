//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/learnerbot/internal/catalog"
	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/identity"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/ashureev/learnerbot/internal/responder"
	"github.com/ashureev/learnerbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "busy")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"busy"}`, w.Body.String())
}

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	sessions *chat.Sessions
	progress *progress.Store
}

type testOptions struct {
	kv        store.KV
	rateLimit int
	backend   func() chat.Backend
}

func newTestEnv(t *testing.T, opts testOptions) *testEnv {
	t.Helper()
	if opts.kv == nil {
		opts.kv = store.NewMemory()
	}
	if opts.rateLimit == 0 {
		opts.rateLimit = 100
	}

	ps := progress.NewStore(opts.kv)
	source := func(profileID string) *progress.Engine {
		return progress.NewEngine(ps, progress.KeyFor(profileID))
	}
	sessions := chat.NewSessions(func(profileID, _ string) *chat.Controller {
		ids := domain.NewIDSource()
		var backend chat.Backend
		if opts.backend != nil {
			backend = opts.backend()
		} else {
			r := responder.New(rand.New(rand.NewSource(1)), responder.WithIDSource(ids))
			backend = chat.NewRuleBackend(r)
		}
		return chat.NewController(backend, source(profileID), chat.WithIDSource(ids))
	})

	limiter := NewRateLimiter(opts.rateLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	router := NewRouter(RouterConfig{
		Base:           NewHandler(sessions, source, limiter),
		Health:         NewHealthHandler(opts.kv, chat.ModeRules, false),
		AllowedOrigins: []string{"*"},
		IsDev:          true,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}, sessions: sessions, progress: ps}
}

func (e *testEnv) do(t *testing.T, method, path, sessionID, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(identity.SessionHeaderName, sessionID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestChatHistoryStartsConversation(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.do(t, http.MethodGet, "/api/chat", "tab1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		State    string           `json:"state"`
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "idle", got.State)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, responder.WelcomeReplies, got.Messages[0].QuickReplies)
}

func TestChatSendTurn(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.do(t, http.MethodPost, "/api/chat", "tab1", `{"message":"Tell me about space"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var turn TurnView
	require.NoError(t, json.Unmarshal(body, &turn))
	assert.False(t, turn.Failed)
	assert.Equal(t, "Tell me about space", turn.User.Content)
	assert.Equal(t, responder.SpaceReplies, turn.Bot.QuickReplies)
	require.NotNil(t, turn.Progress)
	assert.Equal(t, chat.XPPerTurn, turn.Progress.XP)
	assert.Equal(t, 90, turn.Progress.XPToNextLevel)
	assert.Equal(t, 1, turn.Progress.EarnedBadges, "first-chat is unlocked on start")
	assert.NotNil(t, turn.NewBadges)

	_, body = env.do(t, http.MethodGet, "/api/chat", "tab1", "")
	var hist struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Len(t, hist.Messages, 3)
}

func TestChatSendRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, _ := env.do(t, http.MethodPost, "/api/chat", "tab1", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/chat", "tab1", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := `{"message":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	resp, _ = env.do(t, http.MethodPost, "/api/chat", "tab1", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	_, body := env.do(t, http.MethodGet, "/api/chat", "tab1", "")
	var hist struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Len(t, hist.Messages, 1, "rejected input leaves the log unchanged")
}

func TestChatSendRateLimited(t *testing.T) {
	env := newTestEnv(t, testOptions{rateLimit: 2})

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/chat", "tab1", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	// A new tab does not reset the profile's budget.
	resp, _ := env.do(t, http.MethodPost, "/api/chat", "tab2", `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

// gateBackend blocks every reply until release is closed.
type gateBackend struct {
	entered chan struct{}
	release chan struct{}
	replied chan struct{} // optional
}

func (g *gateBackend) Welcome() domain.Message {
	return domain.Message{ID: "w", Author: domain.AuthorBot, Content: "welcome", QuickReplies: []string{}}
}

func (g *gateBackend) Reply(context.Context, string) (domain.Message, error) {
	g.entered <- struct{}{}
	<-g.release
	if g.replied != nil {
		g.replied <- struct{}{}
	}
	return domain.Message{ID: "r", Author: domain.AuthorBot, Content: "done", QuickReplies: []string{}}, nil
}

func TestChatSendWhileAwaitingConflicts(t *testing.T) {
	gate := &gateBackend{entered: make(chan struct{}, 1), release: make(chan struct{})}
	env := newTestEnv(t, testOptions{backend: func() chat.Backend { return gate }})

	done := make(chan int, 1)
	go func() {
		resp, _ := env.do(t, http.MethodPost, "/api/chat", "tab1", `{"message":"first"}`)
		done <- resp.StatusCode
	}()
	<-gate.entered

	resp, _ := env.do(t, http.MethodPost, "/api/chat", "tab1", `{"message":"second"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(gate.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestChatEnd(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	env.do(t, http.MethodGet, "/api/chat", "tab1", "")
	require.Equal(t, 1, env.sessions.Len())

	resp, _ := env.do(t, http.MethodDelete, "/api/chat", "tab1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, env.sessions.Len())
}

func TestProgressEndpoints(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.do(t, http.MethodGet, "/api/progress", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view ProgressView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.Level)
	assert.Len(t, view.Badges, len(catalog.BadgeIDs()))
	assert.Equal(t, 100, view.XPToNextLevel)

	env.do(t, http.MethodPost, "/api/progress/quiz", "", `{"correct":true}`)
	_, body = env.do(t, http.MethodPost, "/api/progress/quiz", "", `{"correct":false}`)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 2, view.TotalQuestions)
	assert.Equal(t, 1, view.CorrectAnswers)
	assert.Equal(t, 50, view.Accuracy)

	resp, _ = env.do(t, http.MethodPost, "/api/progress/quiz", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = env.do(t, http.MethodPost, "/api/progress/streak", "", "")
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.Streak)
}

func TestProgressIsPerProfile(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	env.do(t, http.MethodPost, "/api/progress/streak", "", "")

	other := &http.Client{}
	resp, err := other.Get(env.srv.URL + "/api/progress")
	require.NoError(t, err)
	defer resp.Body.Close()

	var view ProgressView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Zero(t, view.Streak)
}

type downKV struct{ *store.Memory }

func (downKV) Ping(context.Context) error { return errors.New("database is closed") }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	resp, body := env.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"healthy"`)
	assert.Contains(t, string(body), `"mode":"rules"`)
	assert.Contains(t, string(body), `"completionConfigured":false`)

	down := newTestEnv(t, testOptions{kv: downKV{store.NewMemory()}})
	resp, body = down.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "unreachable")

	resp, _ = env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("a"))

	now = now.Add(2 * time.Minute)
	rl.evict()
	rl.mu.Lock()
	assert.Empty(t, rl.requests)
	rl.mu.Unlock()
}
