package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"go-useradmin/internal/auth"
	"go-useradmin/internal/role"
)

// page builds the template model shared by every screen: the sidebar state
// and the identity bar, plus the screen's own fields.
func page(c *gin.Context, d *Deps, title string, fields gin.H) gin.H {
	h := gin.H{
		"Title":            title,
		"Subpath":          subpath(d),
		"CurrentUsername":  auth.CurrentUsername(c),
		"CurrentRoles":     auth.CurrentRoles(c),
		"CurrentRole":      currentRole(c.Request.URL.Path),
		"UserHasAdminRole": auth.HasRole(c, role.Admin),
		"UserHasUserRole":  auth.HasRole(c, role.User),
	}
	for k, v := range fields {
		h[k] = v
	}
	return h
}

// currentRole picks the highlighted sidebar entry from the request path.
func currentRole(p string) string {
	if strings.Contains(p, "/admin") {
		return role.Admin
	}
	return role.User
}

func subpath(d *Deps) string {
	sp := strings.TrimSuffix(d.Config.Server.Subpath, "/")
	if sp != "" && !strings.HasPrefix(sp, "/") {
		sp = "/" + sp
	}
	return sp
}

// link joins a route onto the configured subpath.
func link(d *Deps, route string) string {
	return path.Join("/", subpath(d), route)
}

func renderError(c *gin.Context, d *Deps, status int, message string) {
	c.HTML(status, "error.html", page(c, d, http.StatusText(status), gin.H{
		"Status":  status,
		"Message": message,
	}))
}
