package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/franklin/internal/auth"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminEmail = "admin@example.com"

type fakeVerifier struct {
	identity auth.GoogleIdentity
	err      error
}

func (f fakeVerifier) Verify(context.Context, string) (auth.GoogleIdentity, error) {
	return f.identity, f.err
}

type testEnv struct {
	server *Server
	store  *store.Store
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T, verifier auth.GoogleVerifier, opts Options) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "franklin.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, st.Close())
	})
	issuer, err := auth.NewIssuer("test-secret", 0)
	require.NoError(t, err)
	if verifier == nil {
		verifier = fakeVerifier{err: auth.ErrInvalidGoogleToken}
	}
	if opts.AdminEmails == nil {
		opts.AdminEmails = []string{adminEmail}
	}
	return &testEnv{
		server: New(st, issuer, verifier, nil, opts),
		store:  st,
		issuer: issuer,
	}
}

// signIn creates the user directly in the store and returns a bearer token.
func (e *testEnv) signIn(t *testing.T, email string) (model.User, string) {
	t.Helper()
	user, err := e.store.UpsertUserByEmail(context.Background(), model.User{
		Email:   email,
		IsAdmin: e.server.isAdminEmail(email),
	})
	require.NoError(t, err)
	token, err := e.issuer.Issue(user)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, ok := body.(string); !ok && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	w := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGoogleSignIn(t *testing.T) {
	verifier := fakeVerifier{identity: auth.GoogleIdentity{
		Subject: "google-1",
		Email:   "Admin@Example.com",
		Name:    "Ada",
		Picture: "https://example.com/ada.png",
	}}
	env := newTestEnv(t, verifier, Options{})

	w := env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "id-token"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Token string   `json:"token"`
		User  userView `json:"user"`
	}](t, w)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin@example.com", resp.User.Email)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.True(t, resp.User.IsAdmin)

	claims, err := env.issuer.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)

	w = env.do(t, http.MethodGet, "/api/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User userView `json:"user"`
	}](t, w)
	assert.Equal(t, resp.User.ID, me.User.ID)
	assert.Equal(t, "https://example.com/ada.png", me.User.Picture)
}

func TestGoogleSignInFailures(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	w := env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token is required", decode[ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, codeUnauthorized, decode[ErrorResponse](t, w).Code)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, Options{AuthRate: 0.001})
	for i := 0; i < authBurst; i++ {
		w := env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "x"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	cases := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage", header: "Bearer not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	token, err := env.issuer.Issue(model.User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	w := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, userToken := env.signIn(t, "user@example.com")
	_, adminToken := env.signIn(t, adminEmail)

	w := env.do(t, http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, codeForbidden, decode[ErrorResponse](t, w).Code)

	w = env.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]userView](t, w)
	assert.Len(t, users, 2)
	assert.NotContains(t, w.Body.String(), "googleId")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil, Options{CORSOrigin: "http://localhost:3000"})
	req := httptest.NewRequest(http.MethodOptions, "/api/rules", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	env.do(t, http.MethodGet, "/api/health", "", nil)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "franklin_http_requests_total")
	assert.Contains(t, body, `route="/api/health"`)
	assert.Contains(t, body, "franklin_http_request_duration_seconds")
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"Token abc":      "",
		"Bearerabc":      "",
		"BEARER abc.def": "abc.def",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, extractBearerToken(c), "header %q", header)
	}
}
