package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/iliyamo/movie-library/internal/validator"
)

func ptr[T any](v T) *T { return &v }

func TestRegistrationPasswordMismatchNamesPassword2(t *testing.T) {
	r := Registration{Username: "newuser", Email: "new@example.com", Password1: "abc12", Password2: "abc13"}
	v := validator.New()
	r.Validate(v)
	if got := v.Errors["password2"]; got != "Passwords are not equal." {
		t.Fatalf("password2 error = %q", got)
	}
	if v.Has("password1") {
		t.Fatalf("password1 should not fail on a mismatch, got %q", v.Errors["password1"])
	}
}

func TestPasswordRules(t *testing.T) {
	cases := []struct {
		p1, p2    string
		field     string
		wantError string
	}{
		{"", "x", "password1", "The password1 is missing"},
		{"abcde", "", "password2", "The password2 is missing"},
		{"abcd", "abcd", "password1", "The password length must be in range from 5 to 24."},
		{"abcdefghijklmnopqrstuvwxy", "abcdefghijklmnopqrstuvwxy", "password1", "The password length must be in range from 5 to 24."},
		{"abc-de", "abc-de", "password1", "The password must be alphanumeric."},
		{"abc12", "abc12", "", ""},
	}
	for _, tc := range cases {
		v := validator.New()
		ValidatePasswords(v, tc.p1, tc.p2, "password1", "password2", "Passwords are not equal.")
		if tc.field == "" {
			if !v.Valid() {
				t.Errorf("%q/%q: unexpected errors %v", tc.p1, tc.p2, v.Errors)
			}
			continue
		}
		if got := v.Errors[tc.field]; got != tc.wantError {
			t.Errorf("%q/%q: %s = %q, want %q", tc.p1, tc.p2, tc.field, got, tc.wantError)
		}
	}
}

func TestPasswordChangeMismatchNamesNewPassword2(t *testing.T) {
	v := validator.New()
	PasswordChange{OldPassword: "12345", NewPassword1: "abcde", NewPassword2: "abcdf"}.Validate(v)
	if got := v.Errors["new_password2"]; got != "New passwords are not equal." {
		t.Fatalf("new_password2 error = %q", got)
	}
}

func TestCatalogRules(t *testing.T) {
	cases := []struct {
		name  string
		run   func(v *validator.Validator)
		field string
		want  string
	}{
		{"genre short", func(v *validator.Validator) { GenreInput{Title: ptr("A")}.Validate(v, true) }, "title", "The title length must be longer than 1."},
		{"genre missing", func(v *validator.Validator) { GenreInput{}.Validate(v, true) }, "title", msgRequired},
		{"country lower", func(v *validator.Validator) {
			CountryInput{Title: ptr("france"), Abbreviation: ptr("FR")}.Validate(v, true)
		}, "title", "The first letter of title must be in upper case."},
		{"country abbr lower", func(v *validator.Validator) {
			CountryInput{Title: ptr("France"), Abbreviation: ptr("fr")}.Validate(v, true)
		}, "abbreviation", "The abbreviation must be in upper case."},
		{"country abbr digits", func(v *validator.Validator) {
			CountryInput{Title: ptr("France"), Abbreviation: ptr("F1")}.Validate(v, true)
		}, "abbreviation", "The abbreviation must consist only alphabetical characters."},
		{"country abbr long", func(v *validator.Validator) {
			CountryInput{Title: ptr("France"), Abbreviation: ptr("FRA")}.Validate(v, true)
		}, "abbreviation", "The abbreviation length must be 2."},
		{"age pattern", func(v *validator.Validator) { AgeRestrictionInput{Title: ptr("+18")}.Validate(v, true) }, "title", "The title must match pattern 'number+'"},
		{"age long", func(v *validator.Validator) { AgeRestrictionInput{Title: ptr("100+")}.Validate(v, true) }, "title", "The title is longer than maximum length 3."},
		{"director lower", func(v *validator.Validator) {
			DirectorInput{FirstName: ptr("christopher"), LastName: ptr("Nolan")}.Validate(v, true)
		}, "first_name", "The first letter of first name must be in upper case."},
	}
	for _, tc := range cases {
		v := validator.New()
		tc.run(v)
		if got := v.Errors[tc.field]; got != tc.want {
			t.Errorf("%s: %s = %q, want %q", tc.name, tc.field, got, tc.want)
		}
	}

	v := validator.New()
	AgeRestrictionInput{Title: ptr("18+")}.Validate(v, true)
	CountryInput{Title: ptr("France"), Abbreviation: ptr("FR")}.Validate(v, true)
	DirectorInput{FirstName: ptr("Christopher"), LastName: ptr("Nolan")}.Validate(v, true)
	if !v.Valid() {
		t.Fatalf("valid inputs rejected: %v", v.Errors)
	}
}

func TestPartialUpdateSkipsRequired(t *testing.T) {
	v := validator.New()
	ch := MovieInput{Rating: ptr(7.456)}.Validate(v, false)
	if !v.Valid() {
		t.Fatalf("partial update rejected: %v", v.Errors)
	}
	if ch.Title != nil || ch.ReplaceGenres {
		t.Fatal("absent fields must stay untouched")
	}
	if *ch.Rating != 7.46 {
		t.Fatalf("rating = %v, want 7.46", *ch.Rating)
	}
}

func TestMovieRules(t *testing.T) {
	in := MovieInput{
		Title:      ptr("X"),
		Duration:   ptr(-1),
		Rating:     ptr(10.5),
		Budget:     ptr(-2.0),
		DirectorID: ptr(int64(0)),
		Genres:     json.RawMessage(`[1, "2"]`),
	}
	v := validator.New()
	in.Validate(v, true)
	want := map[string]string{
		"title":        "The title length must be longer than 1.",
		"release_date": msgRequired,
		"duration":     "The duration must be positive.",
		"rating":       "The rating must be in range from 0 to 10.",
		"budget":       "The budget must be positive.",
		"director_id":  "The director_id must be bigger than 0.",
		"genres":       "Genres must be a list of integers.",
	}
	for field, msg := range want {
		if got := v.Errors[field]; got != msg {
			t.Errorf("%s = %q, want %q", field, got, msg)
		}
	}
}

func TestParseGenreIDs(t *testing.T) {
	cases := []struct {
		raw     string
		ids     []uint64
		present bool
		wantErr string
	}{
		{"", nil, false, ""},
		{"null", nil, false, ""},
		{"[]", []uint64{}, true, ""},
		{"[3, 1, 3]", []uint64{3, 1}, true, ""},
		{"[1.5]", nil, true, "Genres must be a list of integers."},
		{`"1,2"`, nil, true, "Genres must be a list of integers."},
		{"[0]", nil, true, "Genre index 0 does not exist."},
	}
	for _, tc := range cases {
		ids, present, err := ParseGenreIDs(json.RawMessage(tc.raw))
		if tc.wantErr != "" {
			if err == nil || err.Error() != tc.wantErr {
				t.Errorf("%q: err = %v, want %q", tc.raw, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected err %v", tc.raw, err)
			continue
		}
		if present != tc.present || len(ids) != len(tc.ids) {
			t.Errorf("%q: got %v/%v, want %v/%v", tc.raw, ids, present, tc.ids, tc.present)
			continue
		}
		for i := range ids {
			if ids[i] != tc.ids[i] {
				t.Errorf("%q: ids = %v, want %v", tc.raw, ids, tc.ids)
			}
		}
	}
}

func TestDateJSON(t *testing.T) {
	var in struct {
		D *Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"1994-06-24T10:00:00"}`), &in); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(in.D)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"1994-06-24"` {
		t.Fatalf("marshal = %s", out)
	}
	for _, raw := range []string{`{"d":"24.06.1994"}`, `{"d":"1979-13-45"}`, `{"d":19790525}`} {
		err := json.Unmarshal([]byte(raw), &in)
		var te *json.UnmarshalTypeError
		if !errors.As(err, &te) || te.Field != "d" || !IsDateType(te.Type) {
			t.Errorf("%s: err = %v, want a date type error on field d", raw, err)
		}
	}
}
