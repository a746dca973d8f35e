package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-useradmin/internal/config"
	"go-useradmin/internal/role"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	cfg.Server.SessionMinutes = 5
	return cfg
}

func setupTestJWT(secret string, userId uint, username string, roles []string, exp time.Duration) string {
	token, _ := GenerateJWT(secret, userId, username, roles, exp)
	return token
}

func newRouter(cfg *config.Config, store SessionStore, requireAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(cfg, store, requireAdmin))
	r.GET("/test", func(c *gin.Context) {
		c.String(200, CurrentUsername(c))
	})
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingCookie(t *testing.T) {
	w := request(newRouter(testConfig(), NewMemorySessionStore(), false), "")
	if w.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestAuthMiddleware_RedirectHonoursSubpath(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Subpath = "/panel"
	w := request(newRouter(cfg, NewMemorySessionStore(), false), "")
	if loc := w.Header().Get("Location"); loc != "/panel/login" {
		t.Errorf("expected redirect to /panel/login, got %q", loc)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	w := request(newRouter(testConfig(), NewMemorySessionStore(), false), "not.a.valid.jwt")
	if w.Code != http.StatusFound {
		t.Errorf("expected 302 for invalid JWT, got %d", w.Code)
	}
}

func TestAuthMiddleware_SessionInvalid(t *testing.T) {
	cfg := testConfig()
	token := setupTestJWT(cfg.Server.JWTSecret, 123, "user", []string{role.User}, time.Minute)
	// No session stored, so the token alone is not enough.
	w := request(newRouter(cfg, NewMemorySessionStore(), false), token)
	if w.Code != http.StatusFound {
		t.Errorf("expected 302 for session error, got %d", w.Code)
	}
}

func TestAuthMiddleware_ReplacedSession(t *testing.T) {
	cfg := testConfig()
	store := NewMemorySessionStore()
	old := setupTestJWT(cfg.Server.JWTSecret, 5, "u", []string{role.User}, time.Minute)
	current := setupTestJWT(cfg.Server.JWTSecret, 5, "u", []string{role.User}, time.Minute)
	_ = store.Set(context.Background(), 5, current, time.Minute)

	if w := request(newRouter(cfg, store, false), old); w.Code != http.StatusFound {
		t.Errorf("expected old token to be rejected, got %d", w.Code)
	}
}

func TestAuthMiddleware_NonAdminForbidden(t *testing.T) {
	cfg := testConfig()
	store := NewMemorySessionStore()
	userId := uint(123)
	token := setupTestJWT(cfg.Server.JWTSecret, userId, "normaluser", []string{role.User}, time.Minute)
	_ = store.Set(context.Background(), userId, token, time.Minute)

	w := request(newRouter(cfg, store, true), token)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}
}

func TestAuthMiddleware_AdminAllowed(t *testing.T) {
	cfg := testConfig()
	store := NewMemorySessionStore()
	userId := uint(222)
	token := setupTestJWT(cfg.Server.JWTSecret, userId, "adminuser", []string{role.Admin, role.User}, time.Minute)
	_ = store.Set(context.Background(), userId, token, time.Minute)

	w := request(newRouter(cfg, store, true), token)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
	if w.Body.String() != "adminuser" {
		t.Errorf("expected username in context, got %q", w.Body.String())
	}
}

func TestAuthMiddleware_RefreshesSession(t *testing.T) {
	cfg := testConfig()
	store := NewMemorySessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	token := setupTestJWT(cfg.Server.JWTSecret, 9, "u", []string{role.User}, time.Hour)
	_ = store.Set(context.Background(), 9, token, time.Minute)

	now = now.Add(30 * time.Second)
	if w := request(newRouter(cfg, store, false), token); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// Past the first minute, but inside the refreshed five.
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), 9); err != nil {
		t.Errorf("expected refreshed session to be alive: %v", err)
	}
}
