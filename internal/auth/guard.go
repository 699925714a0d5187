// Package auth holds the request identity and the guard checks run at the
// start of handlers. Guards return a Decision instead of failing so they can
// be tested and logged apart from the web layer.
package auth

import (
	"github.com/iliyamo/movie-library/internal/apperr"
)

// Identity is the acting principal of a request. The zero value is
// anonymous.
type Identity struct {
	UserID   uint64
	Username string
	IsAdmin  bool
}

func Anonymous() Identity { return Identity{} }

func (i Identity) Authenticated() bool { return i.UserID != 0 }

// Name is the label used in logs.
func (i Identity) Name() string {
	if !i.Authenticated() {
		return "anonymous"
	}
	return i.Username
}

// Outcome tags a guard decision.
type Outcome uint8

const (
	Allowed Outcome = iota
	DeniedUnauthenticated
	DeniedForbidden
	DeniedAlreadyAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "unauthenticated"
	case DeniedForbidden:
		return "forbidden"
	case DeniedAlreadyAuthenticated:
		return "already_authenticated"
	}
	return "unknown"
}

// Decision is the result of a guard.
type Decision struct {
	Outcome Outcome
	Reason  string
}

func allow() Decision { return Decision{Outcome: Allowed} }

func (d Decision) Allowed() bool { return d.Outcome == Allowed }

// Err converts a denial into the matching application error.
func (d Decision) Err() error {
	switch d.Outcome {
	case Allowed:
		return nil
	case DeniedUnauthenticated:
		return apperr.Unauthenticated(d.Reason)
	case DeniedAlreadyAuthenticated:
		return apperr.AlreadyAuthenticated(d.Reason)
	default:
		return apperr.Forbidden(d.Reason)
	}
}

const (
	msgLoginRequired = "Authentication required."
	msgNotEnough     = "Not enough rights."
)

// RequireAuthenticated allows any signed-in identity.
func RequireAuthenticated(id Identity) Decision {
	if !id.Authenticated() {
		return Decision{Outcome: DeniedUnauthenticated, Reason: msgLoginRequired}
	}
	return allow()
}

// RequireAdmin allows admins only. Anonymous callers are forbidden rather
// than asked to authenticate.
func RequireAdmin(id Identity) Decision {
	if !id.Authenticated() || !id.IsAdmin {
		return Decision{Outcome: DeniedForbidden, Reason: msgNotEnough}
	}
	return allow()
}

// RequireAnonymous allows only callers that are not signed in.
func RequireAnonymous(id Identity) Decision {
	if id.Authenticated() {
		return Decision{Outcome: DeniedAlreadyAuthenticated, Reason: "You are already logged in as " + id.Username + "."}
	}
	return allow()
}

// RequireOwnerOrAdmin allows the record owner or an admin. action names the
// attempted change in the denial message, e.g. "edited".
func RequireOwnerOrAdmin(id Identity, ownerID uint64, action string) Decision {
	if !id.Authenticated() {
		return Decision{Outcome: DeniedUnauthenticated, Reason: msgLoginRequired}
	}
	if id.IsAdmin || id.UserID == ownerID {
		return allow()
	}
	return Decision{
		Outcome: DeniedForbidden,
		Reason:  "A movie can only be " + action + " by the user who added it or by the administrator.",
	}
}
