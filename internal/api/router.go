package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go-useradmin/internal/auth"
	"go-useradmin/internal/config"
	"go-useradmin/internal/logger"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

// Deps are the components the handlers work with. They are built once in
// main and shared by every request.
type Deps struct {
	Config   *config.Config
	Users    *user.Service
	Roles    *role.Service
	Sessions auth.SessionStore
	Log      zerolog.Logger
}

func SetupRouter(d *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(d.Log))
	r.SetHTMLTemplate(loadTemplates())

	group := r.Group(subpath(d))
	{
		group.GET("/health", healthHandler)
		group.GET("/metrics", gin.WrapH(promhttp.Handler()))

		// Auth
		group.GET("/login", LoginPageHandler(d))
		group.POST("/login", LoginHandler(d))
		group.POST("/logout", auth.AuthMiddleware(d.Config, d.Sessions, false), LogoutHandler(d))

		// Any signed-in user
		group.GET("/", auth.AuthMiddleware(d.Config, d.Sessions, false), HomeHandler(d))
		group.GET("/user", auth.AuthMiddleware(d.Config, d.Sessions, false), UserPageHandler(d))

		// Admin
		admin := group.Group("/admin", auth.AuthMiddleware(d.Config, d.Sessions, true))
		admin.GET("", AdminPageHandler(d))
		admin.POST("/create", CreateUserHandler(d))
		admin.GET("/edit/:id", EditUserPageHandler(d))
		admin.POST("/update/:id", UpdateUserHandler(d))
		admin.POST("/delete/:id", DeleteUserHandler(d))
	}
	r.NoRoute(func(c *gin.Context) {
		renderError(c, d, http.StatusNotFound, "Page not found")
	})
	return r
}
