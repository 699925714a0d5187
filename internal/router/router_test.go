package router

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/handler"
)

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, Handlers{
		Movies:          &handler.MovieHandler{},
		Directors:       &handler.DirectorHandler{},
		Genres:          &handler.GenreHandler{},
		Countries:       &handler.CountryHandler{},
		AgeRestrictions: &handler.AgeRestrictionHandler{},
		Auth:            &handler.AuthHandler{},
		Health:          &handler.HealthHandler{},
	}, Caching{})

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	want := []string{
		"GET /healthz",
		"GET /v1/movies", "POST /v1/movies", "GET /v1/movies/:id",
		"PUT /v1/movies/:id", "PATCH /v1/movies/:id", "DELETE /v1/movies/:id",
		"GET /v1/directors/:id", "DELETE /v1/genres/:id", "PATCH /v1/countries/:id",
		"POST /v1/age_restrictions",
		"POST /v1/user/register", "POST /v1/user/login", "POST /v1/user/logout",
		"POST /v1/user/refresh", "PUT /v1/user/password-change", "GET /v1/user/me",
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("route %q not registered", w)
		}
	}
	if got[http.MethodDelete+" /v1/user/me"] {
		t.Error("unexpected DELETE /v1/user/me")
	}
}
