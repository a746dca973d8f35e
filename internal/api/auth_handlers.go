package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-useradmin/internal/auth"
	"go-useradmin/internal/metrics"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

// tokenLifetime caps a login; the session store enforces the shorter
// inactivity timeout.
const tokenLifetime = 7 * 24 * time.Hour

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// GET /login
func LoginPageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, loginErr := c.GetQuery("error")
		_, loggedOut := c.GetQuery("logout")
		c.HTML(http.StatusOK, "login.html", page(c, d, "Sign in", gin.H{
			"LoginError": loginErr,
			"LoggedOut":  loggedOut,
		}))
	}
}

// POST /login
func LoginHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form loginForm
		if err := c.ShouldBind(&form); err != nil {
			c.Redirect(http.StatusSeeOther, link(d, "login")+"?error")
			return
		}
		ctx := c.Request.Context()
		u, err := d.Users.Authenticate(ctx, form.Username, form.Password)
		if err != nil {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
			if !errors.Is(err, user.ErrInvalidCredentials) {
				renderError(c, d, http.StatusInternalServerError, "Operation failed")
				return
			}
			d.Log.Info().Str("username", form.Username).Msg("login rejected")
			c.Redirect(http.StatusSeeOther, link(d, "login")+"?error")
			return
		}
		token, err := auth.GenerateJWT(d.Config.Server.JWTSecret, u.ID, u.Username, u.RoleNames(), tokenLifetime)
		if err != nil {
			d.Log.Error().Err(err).Str("username", u.Username).Msg("failed to sign session token")
			renderError(c, d, http.StatusInternalServerError, "Operation failed")
			return
		}
		if err := d.Sessions.Set(ctx, u.ID, token, d.Config.SessionTTL()); err != nil {
			d.Log.Error().Err(err).Str("username", u.Username).Msg("failed to store session")
			renderError(c, d, http.StatusInternalServerError, "Operation failed")
			return
		}
		auth.SetSessionCookie(c, d.Config, token)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultOK).Inc()
		d.Log.Info().Uint("user_id", u.ID).Str("username", u.Username).Msg("login")

		if u.IsAdmin() {
			c.Redirect(http.StatusSeeOther, link(d, "admin"))
			return
		}
		c.Redirect(http.StatusSeeOther, link(d, "user"))
	}
}

// POST /logout
func LogoutHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		endSession(c, d, auth.CurrentUserID(c))
		c.Redirect(http.StatusSeeOther, link(d, "login")+"?logout")
	}
}

func endSession(c *gin.Context, d *Deps, userId uint) {
	if err := d.Sessions.Delete(c.Request.Context(), userId); err != nil {
		d.Log.Warn().Err(err).Uint("user_id", userId).Msg("failed to delete session")
	}
	auth.ClearSessionCookie(c, d.Config)
}

// GET /
func HomeHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.HasRole(c, role.Admin) {
			c.Redirect(http.StatusFound, link(d, "admin"))
			return
		}
		c.Redirect(http.StatusFound, link(d, "user"))
	}
}

// GET /user
func UserPageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := d.Users.FindByID(c.Request.Context(), auth.CurrentUserID(c))
		if errors.Is(err, user.ErrNotFound) {
			// The account is gone; the session is worthless.
			endSession(c, d, auth.CurrentUserID(c))
			c.Redirect(http.StatusSeeOther, link(d, "login"))
			return
		}
		if err != nil {
			renderError(c, d, http.StatusInternalServerError, "Operation failed")
			return
		}
		c.HTML(http.StatusOK, "user.html", page(c, d, "User", gin.H{"User": u}))
	}
}
