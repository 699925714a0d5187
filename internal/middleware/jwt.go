package middleware // middleware contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/utils"
)

// UserLoader is the slice of the user store the identity middleware needs.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	TouchActivity(ctx context.Context, id uint64) error
}

// Identify resolves the caller from an optional Bearer access token. A
// missing, malformed, expired or orphaned token leaves the request
// anonymous, as does one issued before the user's sessions were last ended
// by logout or a password change. Guards in the handlers decide what
// anonymous callers may do.
// For a resolved user the last_activity column is stamped before the
// handler runs.
func Identify(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetIdentity(c, auth.Anonymous())

			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			uid, issued, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, uid)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					return next(c)
				}
				c.Logger().Errorf("identify user %d: %v", uid, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			if u.SessionsValidAfter != nil && issued.Before(*u.SessionsValidAfter) {
				return next(c)
			}
			if err := users.TouchActivity(ctx, u.ID); err != nil && !errors.Is(err, context.Canceled) {
				c.Logger().Warnf("touch last_activity for user %d: %v", u.ID, err)
			}

			SetIdentity(c, auth.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
			return next(c)
		}
	}
}
