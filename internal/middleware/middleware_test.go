package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/config"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/utils"
)

const secret = "test-secret"

type stubUsers struct {
	users   map[uint64]*model.User
	fail    error
	touched []uint64
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found.")
	}
	return u, nil
}

func (s *stubUsers) TouchActivity(_ context.Context, id uint64) error {
	s.touched = append(s.touched, id)
	return nil
}

func bearer(t *testing.T, uid uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, false, 5)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok.Token
}

func runIdentify(users UserLoader, header string) (auth.Identity, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen auth.Identity
	h := Identify(secret, users)(func(c echo.Context) error {
		seen = IdentityFrom(c)
		return c.NoContent(http.StatusNoContent)
	})
	_ = h(c)
	return seen, rec
}

func TestIdentify(t *testing.T) {
	users := &stubUsers{users: map[uint64]*model.User{
		7: {ID: 7, Username: "someone", IsAdmin: true},
	}}

	t.Run("valid token", func(t *testing.T) {
		who, _ := runIdentify(users, bearer(t, 7))
		if who.UserID != 7 || who.Username != "someone" || !who.IsAdmin {
			t.Fatalf("identity = %+v", who)
		}
		if len(users.touched) != 1 || users.touched[0] != 7 {
			t.Fatalf("last_activity not stamped: %v", users.touched)
		}
	})

	for name, header := range map[string]string{
		"no header":    "",
		"not bearer":   "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer not.a.jwt",
		"unknown user": bearer(t, 99),
	} {
		t.Run(name, func(t *testing.T) {
			who, rec := runIdentify(users, header)
			if who.Authenticated() {
				t.Fatalf("identity = %+v, want anonymous", who)
			}
			if rec.Code != http.StatusNoContent {
				t.Fatalf("status %d, handler not reached", rec.Code)
			}
		})
	}

	t.Run("sessions ended after issue", func(t *testing.T) {
		later := time.Now().UTC().Add(time.Minute)
		users.users[8] = &model.User{ID: 8, Username: "loggedout", SessionsValidAfter: &later}
		if who, _ := runIdentify(users, bearer(t, 8)); who.Authenticated() {
			t.Fatalf("revoked token accepted: %+v", who)
		}
	})

	t.Run("sessions ended before issue", func(t *testing.T) {
		earlier := time.Now().UTC().Add(-time.Hour)
		users.users[9] = &model.User{ID: 9, Username: "relogged", SessionsValidAfter: &earlier}
		if who, _ := runIdentify(users, bearer(t, 9)); who.UserID != 9 {
			t.Fatalf("fresh token rejected: %+v", who)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		broken := &stubUsers{fail: errors.New("connection reset")}
		_, rec := runIdentify(broken, bearer(t, 7))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status %d, want 500", rec.Code)
		}
	})
}

func TestLocalRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
		LocalFallback:  true,
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil))
	e.GET("/v1/movies", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := hit("10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := hit("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if !strings.Contains(rec.Body.String(), "Too many requests.") {
		t.Errorf("body = %s", rec.Body)
	}
	if rec := hit("10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other client throttled: %d", rec.Code)
	}
}

func TestRateLimitDisabledWithoutBackend(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/movies", nil)
	req.RemoteAddr = "192.0.2.4:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/movies")
	SetIdentity(c, auth.Identity{UserID: 12, Username: "x"})

	tests := map[string]string{
		"ip":         "rl:ip:192.0.2.4",
		"user":       "rl:user:12",
		"user_route": "rl:user:12:route:POST /v1/movies",
		"":           "rl:ip:192.0.2.4:user:12:route:POST /v1/movies",
	}
	for strategy, want := range tests {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("%q: key = %q, want %q", strategy, got, want)
		}
	}
}

func TestResourceOf(t *testing.T) {
	for route, want := range map[string]string{
		"/v1/movies":           "movies",
		"/v1/movies/:id":       "movies",
		"/v1/age_restrictions": "age_restrictions",
		"/healthz":             "healthz",
		"/":                    "root",
	} {
		if got := resourceOf(route); got != want {
			t.Errorf("resourceOf(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestCacheKeySeparatesPathsAndQueries(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "mc", KeyStrategy: "route_query"}
	key := func(target string) string {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/movies/:id")
		return cacheKeyFrom(cfg, c)
	}
	a, b := key("/v1/movies/1"), key("/v1/movies/2")
	if a == b {
		t.Fatal("different ids share a cache key")
	}
	if !strings.HasPrefix(a, "mc:movies:") {
		t.Fatalf("key %q lacks resource prefix", a)
	}
	if key("/v1/movies/1?x=1") == a {
		t.Fatal("query ignored by route_query strategy")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"items":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || hdr.Get("Content-Type") != "application/json" || string(body) != `{"items":[]}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Fatal("short payload accepted")
	}
}

func TestCaptureWriterDropsOversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("def"))
	if !cw.over || cw.buf.Len() != 0 {
		t.Fatalf("over=%v buffered=%d", cw.over, cw.buf.Len())
	}
	if rec.Body.String() != "abcdef" {
		t.Fatalf("client got %q", rec.Body)
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute}
	calls := 0
	e := echo.New()
	e.Use(NewRedisCache(cfg, nil), InvalidateOnWrite(cfg, nil))
	e.GET("/v1/genres", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"items": []string{}})
	})
	for i := 0; i < 2; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/genres", nil))
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}
