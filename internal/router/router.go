// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/handler"
)

// Handlers groups the handlers mounted by RegisterRoutes.
type Handlers struct {
	Movies          *handler.MovieHandler
	Directors       *handler.DirectorHandler
	Genres          *handler.GenreHandler
	Countries       *handler.CountryHandler
	AgeRestrictions *handler.AgeRestrictionHandler
	Auth            *handler.AuthHandler
	Health          *handler.HealthHandler
}

// Caching wraps the catalog resources. Cache replays GET responses and
// Invalidate drops them after writes; either may be nil.
type Caching struct {
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

// resource is the handler shape shared by every catalog endpoint.
type resource interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// RegisterRoutes mounts the API under /v1 plus /healthz. Authorization is
// decided inside each handler, so groups carry no auth middleware.
func RegisterRoutes(e *echo.Echo, h Handlers, cc Caching) {
	e.GET("/healthz", h.Health.Health)

	v1 := e.Group("/v1")

	var mw []echo.MiddlewareFunc
	for _, m := range []echo.MiddlewareFunc{cc.Invalidate, cc.Cache} {
		if m != nil {
			mw = append(mw, m)
		}
	}
	catalog := v1.Group("", mw...)
	registerResource(catalog, "/movies", h.Movies)
	registerResource(catalog, "/directors", h.Directors)
	registerResource(catalog, "/genres", h.Genres)
	registerResource(catalog, "/countries", h.Countries)
	registerResource(catalog, "/age_restrictions", h.AgeRestrictions)

	// per-user responses are never cached
	user := v1.Group("/user")
	user.POST("/register", h.Auth.Register)
	user.POST("/login", h.Auth.Login)
	user.POST("/logout", h.Auth.Logout)
	user.POST("/refresh", h.Auth.Refresh)
	user.PUT("/password-change", h.Auth.ChangePassword)
	user.GET("/me", h.Auth.Me)
}

// registerResource maps the five CRUD routes of one resource. PUT and
// PATCH share the partial update handler.
func registerResource(g *echo.Group, path string, r resource) {
	g.GET(path, r.List)
	g.POST(path, r.Create)
	g.GET(path+"/:id", r.Get)
	g.PUT(path+"/:id", r.Update)
	g.PATCH(path+"/:id", r.Update)
	g.DELETE(path+"/:id", r.Delete)
}
