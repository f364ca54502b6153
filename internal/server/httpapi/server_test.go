package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/kvstore"
	"github.com/greenloop/backend/internal/logging"
	"github.com/greenloop/backend/internal/server/config"
	"github.com/greenloop/backend/internal/server/credstore"
	"github.com/greenloop/backend/internal/server/sessions"
	"github.com/greenloop/backend/internal/server/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCredStore struct {
	byEmail map[string]*credstore.Record
	byID    map[string]*credstore.Record
	err     error
}

func (f *fakeCredStore) FindFirst(ctx context.Context, filter credstore.Filter) (*credstore.Record, error) {
	if f.err != nil {
		return nil, f.err
	}

	var rec *credstore.Record
	switch filter.Field {
	case credstore.FieldEmail:
		rec = f.byEmail[filter.Value]
	case credstore.FieldUserID:
		rec = f.byID[filter.Value]
	}
	if rec == nil {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

type testEnv struct {
	server *Server
	kv     kvstore.Store
	creds  *fakeCredStore
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	alice := &credstore.Record{
		ID:           "u-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		Role:         "admin",
		Points:       5,
		PasswordHash: string(hash),
	}
	bob := &credstore.Record{
		ID:           "u-2",
		Email:        "bob@example.com",
		Name:         "Bob",
		PasswordHash: string(hash),
	}
	creds := &fakeCredStore{
		byEmail: map[string]*credstore.Record{alice.Email: alice, bob.Email: bob},
		byID:    map[string]*credstore.Record{alice.ID: alice, bob.ID: bob},
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AccessTokenSecret = "test-access-secret"
	cfg.RefreshTokenSecret = "test-refresh-secret"

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	kv := kvstore.NewMemory()
	resolver := users.NewResolver(creds, kv, cfg.UserCacheTTL, cfg.CacheOpTimeout, logger)
	sm := sessions.NewManager(kv, resolver, cfg, logger)

	return &testEnv{
		server: NewServer(cfg, sm, resolver, creds, logger),
		kv:     kv,
		creds:  creds,
		cfg:    cfg,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) (access, refresh string) {
	t.Helper()
	return e.loginAs(t, "alice@example.com")
}

func (e *testEnv) loginAs(t *testing.T, email string) (access, refresh string) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/auth/login",
		`{"email": "`+email+`", "password": "s3cret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("login response missing tokens: %s", w.Body.String())
	}
	return resp.AccessToken, resp.RefreshToken
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{common.AuthorizationHeaderName: "Bearer " + token}
}

func TestLogin_SetsRefreshCookie(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/login",
		`{"email": "alice@example.com", "password": "s3cret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	cookie := findCookie(w, common.RefreshTokenCookieName)
	if cookie == nil {
		t.Fatalf("refresh cookie not set")
	}
	if !cookie.HttpOnly {
		t.Errorf("refresh cookie must be httpOnly")
	}
	if cookie.Path != "/auth" {
		t.Errorf("refresh cookie path = %q, want /auth", cookie.Path)
	}
	if cookie.MaxAge != int(env.cfg.RefreshTokenValidityDuration.Seconds()) {
		t.Errorf("refresh cookie max-age = %d", cookie.MaxAge)
	}

	var resp struct {
		User users.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.User.ID != "u-1" || resp.User.Role != "admin" {
		t.Errorf("unexpected user in response: %+v", resp.User)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/login",
		`{"email": "alice@example.com", "password": "wrong"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/login",
		`{"email": "nobody@example.com", "password": "s3cret"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	// Same body as a wrong password: no account enumeration.
	w2 := env.do(t, http.MethodPost, "/auth/login",
		`{"email": "alice@example.com", "password": "wrong"}`, nil)
	if w.Body.String() != w2.Body.String() {
		t.Fatalf("unknown-email and wrong-password bodies differ: %q vs %q", w.Body.String(), w2.Body.String())
	}
}

func TestLogin_BadForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/login", `{"email": "not-an-email"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestLogin_UpstreamDown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.creds.err = common.ErrUpstreamUnavailable

	w := env.do(t, http.MethodPost, "/auth/login",
		`{"email": "alice@example.com", "password": "s3cret"}`, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", w.Code)
	}
}

func TestMe_RequiresAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	missing := env.do(t, http.MethodGet, "/users/me", "", nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", missing.Code)
	}

	garbage := env.do(t, http.MethodGet, "/users/me", "", bearer("not.a.token"))
	if garbage.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", garbage.Code)
	}

	// All rejection kinds share one body.
	if missing.Body.String() != garbage.Body.String() {
		t.Fatalf("rejection bodies differ: %q vs %q", missing.Body.String(), garbage.Body.String())
	}
}

func TestMe_ReturnsUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	access, _ := env.login(t)

	w := env.do(t, http.MethodGet, "/users/me", "", bearer(access))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var u users.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if u.ID != "u-1" || u.Email != "alice@example.com" || u.Points != 5 {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestMe_BareTokenAccepted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	access, _ := env.login(t)

	// Authorization header without the "Bearer" prefix.
	w := env.do(t, http.MethodGet, "/users/me", "",
		map[string]string{common.AuthorizationHeaderName: access})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestGetUser_OwnershipGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	adminToken, _ := env.loginAs(t, "alice@example.com")
	userToken, _ := env.loginAs(t, "bob@example.com")

	// Owner reads own profile.
	own := env.do(t, http.MethodGet, "/users/u-2", "", bearer(userToken))
	if own.Code != http.StatusOK {
		t.Fatalf("owner read: status %d: %s", own.Code, own.Body.String())
	}

	// Non-admin reading someone else gets 404, same as a nonexistent id.
	foreign := env.do(t, http.MethodGet, "/users/u-1", "", bearer(userToken))
	if foreign.Code != http.StatusNotFound {
		t.Fatalf("foreign read: status %d, want 404", foreign.Code)
	}
	ghost := env.do(t, http.MethodGet, "/users/ghost", "", bearer(adminToken))
	if ghost.Code != http.StatusNotFound {
		t.Fatalf("ghost read: status %d, want 404", ghost.Code)
	}
	if foreign.Body.String() != ghost.Body.String() {
		t.Fatalf("denied and missing bodies differ: %q vs %q", foreign.Body.String(), ghost.Body.String())
	}

	// Admin reads anyone.
	w := env.do(t, http.MethodGet, "/users/u-2", "", bearer(adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("admin read: status %d: %s", w.Code, w.Body.String())
	}
	var u users.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if u.ID != "u-2" || u.Role != common.DefaultRole {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, refresh := env.login(t)

	w := env.do(t, http.MethodPost, "/auth/refresh",
		`{"refresh_token": "`+refresh+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.RefreshToken == refresh {
		t.Fatalf("refresh token was not rotated")
	}
	if cookie := findCookie(w, common.RefreshTokenCookieName); cookie == nil || cookie.Value != resp.RefreshToken {
		t.Fatalf("cookie does not carry the rotated refresh token")
	}

	// The new access token works.
	me := env.do(t, http.MethodGet, "/users/me", "", bearer(resp.AccessToken))
	if me.Code != http.StatusOK {
		t.Fatalf("new access token rejected: %d", me.Code)
	}

	// The consumed refresh token is single-use.
	again := env.do(t, http.MethodPost, "/auth/refresh",
		`{"refresh_token": "`+refresh+`"}`, nil)
	if again.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: status %d, want 401", again.Code)
	}
}

func TestRefresh_FromCookie(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, refresh := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: refresh})
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/refresh", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestLogout_KillsSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	access, refresh := env.login(t)

	w := env.do(t, http.MethodPost, "/auth/logout", "", bearer(access))
	if w.Code != http.StatusOK {
		t.Fatalf("logout status %d: %s", w.Code, w.Body.String())
	}

	cookie := findCookie(w, common.RefreshTokenCookieName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("logout must clear the refresh cookie, got %+v", cookie)
	}

	// The access token is now blacklisted.
	me := env.do(t, http.MethodGet, "/users/me", "", bearer(access))
	if me.Code != http.StatusUnauthorized {
		t.Fatalf("revoked access token: status %d, want 401", me.Code)
	}

	// The refresh slot is gone.
	ref := env.do(t, http.MethodPost, "/auth/refresh",
		`{"refresh_token": "`+refresh+`"}`, nil)
	if ref.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status %d, want 401", ref.Code)
	}
}

func TestLogout_Anonymous(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/logout", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous logout status %d, want 200", w.Code)
	}
}

func TestValidation_FailsClosedAs503(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	access, _ := env.login(t)

	// A token signed with a different secret is a 401; a dead cache on a
	// well-signed token is a 503. Swap in a manager whose cache always fails.
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	resolver := users.NewResolver(env.creds, kvstore.NewMemory(), time.Hour, 500*time.Millisecond, logger)
	sm := sessions.NewManager(deadKV{}, resolver, env.cfg, logger)
	broken := NewServer(env.cfg, sm, resolver, env.creds, logger)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+access)
	w := httptest.NewRecorder()
	broken.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", w.Code)
	}
}

type deadKV struct{}

func (deadKV) Get(context.Context, string) (string, error) {
	return "", common.ErrUpstreamUnavailable
}
func (deadKV) Set(context.Context, string, string, time.Duration) error {
	return common.ErrUpstreamUnavailable
}
func (deadKV) Del(context.Context, string) error { return common.ErrUpstreamUnavailable }
func (deadKV) Exists(context.Context, string) (bool, error) {
	return false, common.ErrUpstreamUnavailable
}
