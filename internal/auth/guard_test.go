package auth

import (
	"errors"
	"testing"

	"github.com/iliyamo/movie-library/internal/apperr"
)

var (
	anon  = Anonymous()
	user  = Identity{UserID: 2, Username: "username"}
	other = Identity{UserID: 3, Username: "another"}
	admin = Identity{UserID: 1, Username: "admin", IsAdmin: true}
)

func TestRoleGates(t *testing.T) {
	cases := []struct {
		name string
		got  Decision
		want Outcome
		kind apperr.Kind
	}{
		{"auth anon", RequireAuthenticated(anon), DeniedUnauthenticated, apperr.KindUnauthenticated},
		{"auth user", RequireAuthenticated(user), Allowed, apperr.KindInternal},
		{"admin anon", RequireAdmin(anon), DeniedForbidden, apperr.KindForbidden},
		{"admin user", RequireAdmin(user), DeniedForbidden, apperr.KindForbidden},
		{"admin admin", RequireAdmin(admin), Allowed, apperr.KindInternal},
		{"anon anon", RequireAnonymous(anon), Allowed, apperr.KindInternal},
		{"anon user", RequireAnonymous(user), DeniedAlreadyAuthenticated, apperr.KindAlreadyAuthenticated},
	}
	for _, tc := range cases {
		if tc.got.Outcome != tc.want {
			t.Errorf("%s: outcome = %v, want %v", tc.name, tc.got.Outcome, tc.want)
		}
		err := tc.got.Err()
		if tc.want == Allowed {
			if err != nil {
				t.Errorf("%s: err = %v, want nil", tc.name, err)
			}
			continue
		}
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Kind != tc.kind {
			t.Errorf("%s: err = %v, want kind %v", tc.name, err, tc.kind)
		}
	}
}

func TestAlreadyLoggedInMessage(t *testing.T) {
	d := RequireAnonymous(user)
	if d.Reason != "You are already logged in as username." {
		t.Fatalf("reason = %q", d.Reason)
	}
}

func TestOwnership(t *testing.T) {
	const owner = 2
	cases := []struct {
		id   Identity
		want Outcome
	}{
		{user, Allowed},
		{admin, Allowed},
		{other, DeniedForbidden},
		{anon, DeniedUnauthenticated},
	}
	for _, tc := range cases {
		d := RequireOwnerOrAdmin(tc.id, owner, "edited")
		if d.Outcome != tc.want {
			t.Errorf("%s: outcome = %v, want %v", tc.id.Name(), d.Outcome, tc.want)
		}
	}
	d := RequireOwnerOrAdmin(other, owner, "deleted")
	if d.Reason != "A movie can only be deleted by the user who added it or by the administrator." {
		t.Fatalf("reason = %q", d.Reason)
	}
}
