package model

import (
	"regexp"
	"strings"

	"github.com/iliyamo/movie-library/internal/validator"
)

// Genre mirrors a row of the genres table.
type Genre struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// Country mirrors a row of the countries table.
type Country struct {
	ID           uint64 `json:"id"`
	Title        string `json:"title"`
	Abbreviation string `json:"abbreviation"`
}

// AgeRestriction mirrors a row of the age_restrictions table.
type AgeRestriction struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

var ageTitleRX = regexp.MustCompile(`^\d{1,2}\+$`)

// GenreInput is the write payload of a genre. A nil field is left as is.
type GenreInput struct {
	Title *string `json:"title"`
}

func (in GenreInput) Validate(v *validator.Validator, creating bool) {
	if in.Title == nil {
		v.Check(!creating, "title", msgRequired)
		return
	}
	t := *in.Title
	switch {
	case validator.Len(t) > 100:
		v.AddError("title", "The title is longer than maximum length 100.")
	case validator.Len(t) <= 1:
		v.AddError("title", "The title length must be longer than 1.")
	}
}

func (in GenreInput) Apply(g *Genre) {
	if in.Title != nil {
		g.Title = *in.Title
	}
}

// CountryInput is the write payload of a country.
type CountryInput struct {
	Title        *string `json:"title"`
	Abbreviation *string `json:"abbreviation"`
}

func (in CountryInput) Validate(v *validator.Validator, creating bool) {
	if in.Title == nil {
		v.Check(!creating, "title", msgRequired)
	} else {
		t := *in.Title
		switch {
		case validator.Len(t) > 100:
			v.AddError("title", "The title is longer than maximum length 100.")
		case validator.Len(t) <= 1:
			v.AddError("title", "The title length must be longer than 1.")
		case !validator.Capitalized(t):
			v.AddError("title", "The first letter of title must be in upper case.")
		}
	}

	if in.Abbreviation == nil {
		v.Check(!creating, "abbreviation", msgRequired)
		return
	}
	a := *in.Abbreviation
	switch {
	case !validator.Alpha(a):
		v.AddError("abbreviation", "The abbreviation must consist only alphabetical characters.")
	case validator.Len(a) != 2:
		v.AddError("abbreviation", "The abbreviation length must be 2.")
	case !validator.Upper(a):
		v.AddError("abbreviation", "The abbreviation must be in upper case.")
	}
}

func (in CountryInput) Apply(c *Country) {
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Abbreviation != nil {
		c.Abbreviation = *in.Abbreviation
	}
}

// AgeRestrictionInput is the write payload of an age restriction.
type AgeRestrictionInput struct {
	Title *string `json:"title"`
}

func (in AgeRestrictionInput) Validate(v *validator.Validator, creating bool) {
	if in.Title == nil {
		v.Check(!creating, "title", msgRequired)
		return
	}
	t := *in.Title
	switch {
	case validator.Len(t) > 3:
		v.AddError("title", "The title is longer than maximum length 3.")
	case validator.Len(t) <= 1:
		v.AddError("title", "The title length must be longer than 1.")
	case !validator.Matches(t, ageTitleRX):
		v.AddError("title", "The title must match pattern 'number+'")
	}
}

func (in AgeRestrictionInput) Apply(a *AgeRestriction) {
	if in.Title != nil {
		a.Title = *in.Title
	}
}

// Director mirrors a row of the directors table.
type Director struct {
	ID          uint64  `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Description *string `json:"description"`
}

// FullName is the "first last" form matched by director searches.
func (d Director) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DirectorInfo is the director summary nested into movie responses.
type DirectorInfo struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DirectorInput is the write payload of a director.
type DirectorInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Description *string `json:"description"`
}

func (in DirectorInput) Validate(v *validator.Validator, creating bool) {
	validateDirectorName(v, "first_name", "first name", in.FirstName, creating)
	validateDirectorName(v, "last_name", "last name", in.LastName, creating)
}

func validateDirectorName(v *validator.Validator, field, label string, value *string, creating bool) {
	if value == nil {
		v.Check(!creating, field, msgRequired)
		return
	}
	s := *value
	switch {
	case validator.Len(s) > 50:
		v.AddError(field, "The "+label+" is longer than maximum length 50.")
	case validator.Len(s) <= 1:
		v.AddError(field, "The "+label+" length must be longer than 1.")
	case !validator.Capitalized(s):
		v.AddError(field, "The first letter of "+label+" must be in upper case.")
	}
}

func (in DirectorInput) Apply(d *Director) {
	if in.FirstName != nil {
		d.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		d.LastName = *in.LastName
	}
	if in.Description != nil {
		d.Description = in.Description
	}
}
