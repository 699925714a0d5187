// Package query turns list request parameters into SQL statements. Parsing
// validates the raw query string; building composes predicates in a fixed
// order and renders them with `?` placeholders.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/movie-library/internal/apperr"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Open sides of a release date range resolve to these bounds.
var (
	MinDate = time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

var (
	ErrInvalidSort = errors.New("invalid sort")
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidPage = errors.New("invalid pagination")
)

// SortField is a sortable movie column.
type SortField string

const (
	SortRating      SortField = "rating"
	SortReleaseDate SortField = "release_date"
)

var sortFields = []SortField{SortRating, SortReleaseDate}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type SortKey struct {
	Field     SortField
	Direction Direction
}

// Page is a validated pagination window.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return p.Size * (p.Number - 1) }

// DateRange is an inclusive release date window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MovieParams is the parsed parameter bag of a movie list request.
type MovieParams struct {
	Search       string
	Sort         []SortKey
	ReleaseDates *DateRange
	Directors    []string
	Genres       []string
	Page         Page
}

// DirectorParams is the parsed parameter bag of a director search.
type DirectorParams struct {
	Search string
	Page   Page
}

// ParseRawQuery splits a raw query string on '&' only. A literal ';' stays
// inside the value, where the sort syntax needs it; url.ParseQuery rejects
// such pairs.
func ParseRawQuery(raw string) (url.Values, error) {
	values := url.Values{}
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, apperr.InvalidQuery(k, "Malformed query string.").Wrap(err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, apperr.InvalidQuery(key, "Malformed query string.").Wrap(err)
		}
		values[key] = append(values[key], val)
	}
	return values, nil
}

// ParseMovieParams validates the movie list query string.
func ParseMovieParams(values url.Values) (MovieParams, error) {
	var p MovieParams
	var err error

	if p.Sort, err = ParseSort(values.Get("sort")); err != nil {
		return MovieParams{}, err
	}
	p.Search = strings.TrimSpace(values.Get("q"))
	// an empty filter value means no filter
	if raw := strings.TrimSpace(values.Get("release_date_range")); raw != "" {
		if p.ReleaseDates, err = ParseDateRange(raw); err != nil {
			return MovieParams{}, err
		}
	}
	p.Directors = splitList(values.Get("directors"), false)
	p.Genres = splitList(values.Get("genres"), true)
	if p.Page, err = ParsePage(values); err != nil {
		return MovieParams{}, err
	}
	return p, nil
}

// ParseDirectorParams validates the director search query string.
func ParseDirectorParams(values url.Values) (DirectorParams, error) {
	page, err := ParsePage(values)
	if err != nil {
		return DirectorParams{}, err
	}
	return DirectorParams{Search: strings.TrimSpace(values.Get("q")), Page: page}, nil
}

// ParseSort reads "field[,direction];field[,direction]...". The direction
// defaults to desc.
func ParseSort(raw string) ([]SortKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var keys []SortKey
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		field := SortField(strings.TrimSpace(parts[0]))
		dir := Desc
		if len(parts) > 1 {
			dir = Direction(strings.TrimSpace(parts[1]))
		}
		if !validSortField(field) {
			return nil, apperr.InvalidQuery("sort", fmt.Sprintf(
				"Incorrect input: sort parameter '%s'. Valid sorting parameters - %s.",
				field, joinFields(sortFields))).Wrap(ErrInvalidSort)
		}
		if len(parts) > 2 || (dir != Asc && dir != Desc) {
			mode := strings.Join(parts[1:], ",")
			return nil, apperr.InvalidQuery("sort", fmt.Sprintf(
				"Incorrect input: sorting mode parameter '%s'. Use 'asc' or 'desc' - by default.",
				mode)).Wrap(ErrInvalidSort)
		}
		keys = append(keys, SortKey{Field: field, Direction: dir})
	}
	return keys, nil
}

// ParseDateRange reads "start,end" where either side may be empty.
func ParseDateRange(raw string) (*DateRange, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, apperr.InvalidQuery("release_date_range",
			"Incorrect input: release_date_range must be 'start,end' in format YYYY-MM-DD.").Wrap(ErrInvalidDate)
	}
	r := &DateRange{From: MinDate, To: MaxDate}
	bounds := []*time.Time{&r.From, &r.To}
	for i, s := range parts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, apperr.InvalidQuery("release_date_range", fmt.Sprintf(
				"Incorrect input: date '%s' does not match format YYYY-MM-DD.", s)).Wrap(ErrInvalidDate)
		}
		*bounds[i] = t
	}
	return r, nil
}

// ParsePage reads page and page_size, applying defaults when absent.
func ParsePage(values url.Values) (Page, error) {
	number, err := pageParam(values, "page", DefaultPage)
	if err != nil {
		return Page{}, err
	}
	size, err := pageParam(values, "page_size", DefaultPageSize)
	if err != nil {
		return Page{}, err
	}
	if size > MaxPageSize {
		return Page{}, apperr.InvalidQuery("page_size",
			fmt.Sprintf("Parameter page_size maximum value is %d.", MaxPageSize)).Wrap(ErrInvalidPage)
	}
	return Page{Number: number, Size: size}, nil
}

func pageParam(values url.Values, name string, def int) (int, error) {
	raw, ok := lookup(values, name)
	if !ok {
		return def, nil
	}
	if !digits(raw) {
		return 0, apperr.InvalidQuery(name,
			fmt.Sprintf("Parameter %s must be positive integer.", name)).Wrap(ErrInvalidPage)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidQuery(name,
			fmt.Sprintf("Parameter %s must be positive integer.", name)).Wrap(ErrInvalidPage)
	}
	if n < 1 {
		return 0, apperr.InvalidQuery(name,
			fmt.Sprintf("Parameter %s must be greater than 0.", name)).Wrap(ErrInvalidPage)
	}
	return n, nil
}

func lookup(values url.Values, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitList splits a comma list, dropping blank entries. Folded lists are
// lower-cased and de-duplicated.
func splitList(raw string, fold bool) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if fold {
			s = strings.ToLower(s)
			if seen[s] {
				continue
			}
			seen[s] = true
		}
		out = append(out, s)
	}
	return out
}

func validSortField(f SortField) bool {
	for _, s := range sortFields {
		if s == f {
			return true
		}
	}
	return false
}

func joinFields(fs []SortField) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
