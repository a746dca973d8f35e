package auth

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"go-useradmin/internal/config"
	"go-useradmin/internal/role"
)

const (
	SessionCookie = "session"

	ctxUserID   = "userId"
	ctxUsername = "username"
	ctxRoles    = "roles"
)

// AuthMiddleware admits requests carrying a live session cookie. Anonymous
// or stale sessions are sent to the login page; with requireAdmin, users
// without ROLE_ADMIN get a 403.
func AuthMiddleware(cfg *config.Config, sessions SessionStore, requireAdmin bool) gin.HandlerFunc {
	loginURL := path.Join("/", cfg.Server.Subpath, "login")
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(SessionCookie)
		if err != nil || tokenStr == "" {
			c.Redirect(http.StatusFound, loginURL)
			c.Abort()
			return
		}
		claims, err := ParseJWT(cfg.Server.JWTSecret, tokenStr)
		if err != nil {
			ClearSessionCookie(c, cfg)
			c.Redirect(http.StatusFound, loginURL)
			c.Abort()
			return
		}
		ctx := c.Request.Context()
		stored, err := sessions.Get(ctx, claims.UserID)
		if err != nil || stored != tokenStr {
			ClearSessionCookie(c, cfg)
			c.Redirect(http.StatusFound, loginURL)
			c.Abort()
			return
		}
		// Enforce inactivity timeout (refresh expiry)
		_ = sessions.Set(ctx, claims.UserID, tokenStr, cfg.SessionTTL())

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRoles, claims.Roles)

		if requireAdmin && !claims.HasRole(role.Admin) {
			c.String(http.StatusForbidden, "403 Forbidden: admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetSessionCookie(c *gin.Context, cfg *config.Config, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, 0, cookiePath(cfg), "", cfg.Server.SecureCookie, true)
}

func ClearSessionCookie(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, cookiePath(cfg), "", cfg.Server.SecureCookie, true)
}

func cookiePath(cfg *config.Config) string {
	return path.Join("/", cfg.Server.Subpath)
}

func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

func CurrentRoles(c *gin.Context) []string {
	return c.GetStringSlice(ctxRoles)
}

func HasRole(c *gin.Context, name string) bool {
	for _, r := range CurrentRoles(c) {
		if r == name {
			return true
		}
	}
	return false
}

// WithIdentity puts an identity on the context the same way the middleware
// does, for mounting a handler without the cookie round trip.
func WithIdentity(userId uint, username string, roles []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUserID, userId)
		c.Set(ctxUsername, username)
		c.Set(ctxRoles, roles)
		c.Next()
	}
}
