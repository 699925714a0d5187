// Package validator accumulates field-level validation failures. The first
// failure recorded for a field is the one reported.
package validator

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/iliyamo/movie-library/internal/apperr"
)

// EmailRX is the address format accepted for user accounts.
var EmailRX = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// Validator holds a map of field names to their validation error messages.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// Has reports whether key already failed.
func (v *Validator) Has(key string) bool {
	_, ok := v.Errors[key]
	return ok
}

// AddError records key as failing with message unless key already failed.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key only when ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Err returns nil when valid, otherwise a validation error carrying the
// collected field messages.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return apperr.Validation(v.Errors)
}

// Len counts characters, not bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Capitalized reports whether the first character of s is not lower case.
// An empty string is not capitalized.
func Capitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return false
	}
	return unicode.ToUpper(r) == r
}

// Alpha reports whether s is non-empty and made of letters only.
func Alpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Alnum reports whether s is non-empty and made of letters and digits only.
func Alnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Upper reports whether s has no lower-case letters.
func Upper(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func In(value string, list ...string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}
