package model

import (
	"strings"
	"time"

	"github.com/iliyamo/movie-library/internal/validator"
)

const msgRequired = "Missing data for required field."

// User mirrors a row of the users table. PasswordHash never leaves the
// service.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	// SessionsValidAfter rejects access tokens issued before it; nil
	// until the first logout or password change.
	SessionsValidAfter *time.Time `json:"-"`
}

// UserInfo is the owner summary nested into movie responses.
type UserInfo struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// Registration is the body of POST /user/register.
type Registration struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password1 string  `json:"password1"`
	Password2 string  `json:"password2"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Normalize trims surrounding blanks from the identifying fields.
func (r *Registration) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

// Validate applies the format rules. Uniqueness of username and email is
// checked by the caller against the store.
func (r Registration) Validate(v *validator.Validator) {
	ValidateUsername(v, r.Username)
	ValidateEmail(v, r.Email)
	ValidatePasswords(v, r.Password1, r.Password2, "password1", "password2", "Passwords are not equal.")
	if r.FirstName != nil {
		validatePersonName(v, "first_name", *r.FirstName)
	}
	if r.LastName != nil {
		validatePersonName(v, "last_name", *r.LastName)
	}
}

func ValidateUsername(v *validator.Validator, username string) {
	switch {
	case username == "":
		v.AddError("username", msgRequired)
	case validator.Len(username) > 150:
		v.AddError("username", "The username is longer than maximum length 150.")
	case validator.Len(username) <= 3:
		v.AddError("username", "The username length must be longer than 3.")
	}
}

func ValidateEmail(v *validator.Validator, email string) {
	switch {
	case email == "":
		v.AddError("email", msgRequired)
	case !validator.Matches(email, validator.EmailRX):
		v.AddError("email", "Not a valid email address.")
	case validator.Len(email) > 150:
		v.AddError("email", "The email is longer than maximum length 150.")
	case validator.Len(email) <= 6:
		v.AddError("email", "The email length must be longer than 6.")
	}
}

// ValidatePasswords checks a password pair. Mismatches are reported on the
// confirmation field, length and charset problems on the first one.
func ValidatePasswords(v *validator.Validator, p1, p2, f1, f2, mismatch string) {
	switch {
	case p1 == "":
		v.AddError(f1, "The "+f1+" is missing")
	case p2 == "":
		v.AddError(f2, "The "+f2+" is missing")
	case p1 != p2:
		v.AddError(f2, mismatch)
	case validator.Len(p1) < 5 || validator.Len(p1) > 24:
		v.AddError(f1, "The password length must be in range from 5 to 24.")
	case !validator.Alnum(p1):
		v.AddError(f1, "The password must be alphanumeric.")
	}
}

func validatePersonName(v *validator.Validator, field, value string) {
	switch {
	case validator.Len(value) > 50:
		v.AddError(field, "The "+field+" is longer than maximum length 50.")
	case validator.Len(value) <= 1:
		v.AddError(field, "The "+field+" length must be longer than 1.")
	}
}

// Credentials is the body of POST /user/login.
type Credentials struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

func (c Credentials) Validate(v *validator.Validator) {
	v.Check(strings.TrimSpace(c.UsernameOrEmail) != "", "username_or_email", "The username_or_email is missing")
	v.Check(c.Password != "", "password", "The password field is missing")
}

// PasswordChange is the body of PUT /user/password-change.
type PasswordChange struct {
	OldPassword  string `json:"old_password"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

func (p PasswordChange) Validate(v *validator.Validator) {
	ValidatePasswords(v, p.NewPassword1, p.NewPassword2, "new_password1", "new_password2", "New passwords are not equal.")
}
