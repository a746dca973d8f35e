package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginPage(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login"`)
	assert.NotContains(t, w.Body.String(), "Invalid username or password")

	w = s.do(t, http.MethodGet, "/login?error", nil, nil)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	w = s.do(t, http.MethodGet, "/login?logout", nil, nil)
	assert.Contains(t, w.Body.String(), "You have been logged out")
}

func TestLogin_AdminGoesToAdminPanel(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"admin"}}, nil)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	admin := s.userByName(t, "admin")
	stored, err := s.sessions.Get(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, stored)
}

func TestLogin_UserGoesToUserPage(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/login", url.Values{"username": {"user"}, "password": {"user"}}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/user", w.Header().Get("Location"))
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newTestServer(t, "")
	cases := map[string]url.Values{
		"wrong password": {"username": {"admin"}, "password": {"nope"}},
		"unknown user":   {"username": {"ghost"}, "password": {"admin"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/login", form, nil)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/login?error", w.Header().Get("Location"))
			assert.Nil(t, sessionCookie(w))
		})
	}
}

func TestLogout_EndsSession(t *testing.T) {
	s := newTestServer(t, "")
	cookie := s.login(t, "user", "user")

	w := s.do(t, http.MethodPost, "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?logout", w.Header().Get("Location"))
	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	n, err := s.sessions.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// The old cookie no longer opens anything.
	w = s.do(t, http.MethodGet, "/user", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestHome_RedirectsByRole(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/", nil, s.login(t, "admin", "admin"))
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/", nil, s.login(t, "user", "user"))
	assert.Equal(t, "/user", w.Header().Get("Location"))
}

func TestUserPage_ShowsOwnRecord(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodGet, "/user", nil, s.login(t, "user", "user"))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "user@mail.ru")
	assert.Contains(t, body, "DefaultUser")
	// No admin link in the sidebar for a plain user.
	assert.NotContains(t, body, `href="/admin"`)
}

func TestAdminRoutes_ForbiddenForUser(t *testing.T) {
	s := newTestServer(t, "")
	cookie := s.login(t, "user", "user")

	w := s.do(t, http.MethodGet, "/admin", nil, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/admin/delete/1", nil, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, err := s.deps.Users.FindByID(context.Background(), 1)
	assert.NoError(t, err)
}
