package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var profileID, sessionID string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		profileID = ProfileIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, profileID, sessionID
}

func TestMiddlewareIssuesProfileCookie(t *testing.T) {
	rec, profileID, sessionID := serve(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	assert.True(t, IsValidProfileID(profileID))
	assert.Equal(t, DefaultSessionIDValue, sessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)
	assert.Equal(t, profileID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure, "dev mode cookies are not secure-only")
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	id, err := NewProfileID()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	_, profileID, _ := serve(t, req)
	assert.Equal(t, id, profileID)

	req = httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "forged"})
	_, profileID, _ = serve(t, req)
	assert.NotEqual(t, "forged", profileID)
	assert.True(t, IsValidProfileID(profileID))
}

func TestSessionIDSources(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"header", "tab-1", "", "tab-1"},
		{"query", "", "tab-2", "tab-2"},
		{"header wins", "tab-1", "tab-2", "tab-1"},
		{"invalid", "bad id!", "", DefaultSessionIDValue},
		{"missing", "", "", DefaultSessionIDValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/ws/chat"
			if tt.query != "" {
				target += "?" + SessionQueryParam + "=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set(SessionHeaderName, tt.header)
			}
			_, _, sessionID := serve(t, req)
			assert.Equal(t, tt.want, sessionID)
		})
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ProfileIDFromContext(ctx))
	assert.Equal(t, DefaultSessionIDValue, SessionIDFromContext(ctx))

	ctx = WithIdentity(ctx, "anon_x", "tab")
	assert.Equal(t, "anon_x", ProfileIDFromContext(ctx))
	assert.Equal(t, "tab", SessionIDFromContext(ctx))
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	assert.Equal(t, "10.1.2.3", IPFromRequest(req))

	req.RemoteAddr = "weird"
	assert.Equal(t, "weird", IPFromRequest(req))
}
