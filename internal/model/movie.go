package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/iliyamo/movie-library/internal/validator"
)

// Movie is a movie with its references resolved for output.
type Movie struct {
	ID             uint64          `json:"id"`
	Title          string          `json:"title"`
	ReleaseDate    Date            `json:"release_date"`
	Duration       int             `json:"duration"`
	Rating         *float64        `json:"rating"`
	Description    *string         `json:"description"`
	Preview        *string         `json:"preview"`
	Budget         *float64        `json:"budget"`
	OwnerID        uint64          `json:"-"`
	Owner          *UserInfo       `json:"user"`
	Director       *DirectorInfo   `json:"director"`
	Country        *Country        `json:"country"`
	AgeRestriction *AgeRestriction `json:"age_restriction"`
	Genres         []Genre         `json:"genres"`
}

// MovieChanges is a validated write set. Nil pointers are not written.
// GenreIDs is applied only when ReplaceGenres is set, and then replaces the
// whole genre set.
type MovieChanges struct {
	Title            *string
	ReleaseDate      *Date
	Duration         *int
	Rating           *float64
	Description      *string
	Preview          *string
	Budget           *float64
	DirectorID       *uint64
	CountryID        *uint64
	AgeRestrictionID *uint64
	ReplaceGenres    bool
	GenreIDs         []uint64
}

// MovieInput is the JSON body of movie create and update requests.
type MovieInput struct {
	Title            *string         `json:"title"`
	ReleaseDate      *Date           `json:"release_date"`
	Duration         *int            `json:"duration"`
	Rating           *float64        `json:"rating"`
	Description      *string         `json:"description"`
	Preview          *string         `json:"preview"`
	Budget           *float64        `json:"budget"`
	DirectorID       *int64          `json:"director_id"`
	CountryID        *int64          `json:"country_id"`
	AgeRestrictionID *int64          `json:"age_restriction_id"`
	Genres           json.RawMessage `json:"genres"`
}

// Validate checks field rules and returns the write set. When creating,
// title, release_date and duration are required. Existence of referenced
// rows is left to the caller.
func (in MovieInput) Validate(v *validator.Validator, creating bool) MovieChanges {
	var ch MovieChanges

	switch {
	case in.Title == nil:
		v.Check(!creating, "title", msgRequired)
	case validator.Len(*in.Title) > 255:
		v.AddError("title", "The title is longer than maximum length 255.")
	case validator.Len(*in.Title) <= 1:
		v.AddError("title", "The title length must be longer than 1.")
	default:
		ch.Title = in.Title
	}

	if in.ReleaseDate == nil {
		v.Check(!creating, "release_date", msgRequired)
	} else {
		ch.ReleaseDate = in.ReleaseDate
	}

	switch {
	case in.Duration == nil:
		v.Check(!creating, "duration", msgRequired)
	case *in.Duration < 0:
		v.AddError("duration", "The duration must be positive.")
	default:
		ch.Duration = in.Duration
	}

	if in.Rating != nil {
		if *in.Rating < 0 || *in.Rating > 10 {
			v.AddError("rating", "The rating must be in range from 0 to 10.")
		} else {
			r := math.Round(*in.Rating*100) / 100
			ch.Rating = &r
		}
	}

	ch.Description = in.Description

	if in.Preview != nil {
		if validator.Len(*in.Preview) > 255 {
			v.AddError("preview", "The preview is longer than maximum length 255.")
		} else {
			ch.Preview = in.Preview
		}
	}

	if in.Budget != nil {
		if *in.Budget < 0 {
			v.AddError("budget", "The budget must be positive.")
		} else {
			ch.Budget = in.Budget
		}
	}

	ch.DirectorID = positiveID(v, "director_id", in.DirectorID)
	ch.CountryID = positiveID(v, "country_id", in.CountryID)
	ch.AgeRestrictionID = positiveID(v, "age_restriction_id", in.AgeRestrictionID)

	ids, present, err := ParseGenreIDs(in.Genres)
	if err != nil {
		v.AddError("genres", err.Error())
	} else if present {
		ch.ReplaceGenres = true
		ch.GenreIDs = ids
	}
	return ch
}

func positiveID(v *validator.Validator, field string, id *int64) *uint64 {
	if id == nil {
		return nil
	}
	if *id < 1 {
		v.AddError(field, fmt.Sprintf("The %s must be bigger than 0.", field))
		return nil
	}
	u := uint64(*id)
	return &u
}

// ParseGenreIDs decodes the raw genres field. Absent and null report
// present=false. Duplicate ids collapse to one.
func ParseGenreIDs(raw json.RawMessage) (ids []uint64, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}
	errShape := errors.New("Genres must be a list of integers.")

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, true, errShape
	}

	seen := make(map[uint64]bool, len(items))
	ids = make([]uint64, 0, len(items))
	for _, it := range items {
		num, ok := it.(json.Number)
		if !ok {
			return nil, true, errShape
		}
		n, err := num.Int64()
		if err != nil {
			return nil, true, errShape
		}
		if n < 1 {
			return nil, true, fmt.Errorf("Genre index %d does not exist.", n)
		}
		if !seen[uint64(n)] {
			seen[uint64(n)] = true
			ids = append(ids, uint64(n))
		}
	}
	return ids, true, nil
}
