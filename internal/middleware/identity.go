package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/auth"
)

const identityKey = "identity"

// IdentityFrom returns the identity resolved for this request, or anonymous
// when none was stored.
func IdentityFrom(c echo.Context) auth.Identity {
	if id, ok := c.Get(identityKey).(auth.Identity); ok {
		return id
	}
	return auth.Anonymous()
}

// SetIdentity stores id on the request context.
func SetIdentity(c echo.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// currentUserID is the user part of rate limit keys; "anon" for anonymous
// callers.
func currentUserID(c echo.Context) string {
	id := IdentityFrom(c)
	if !id.Authenticated() {
		return "anon"
	}
	return strconv.FormatUint(id.UserID, 10)
}
