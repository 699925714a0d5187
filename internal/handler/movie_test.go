package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/iliyamo/movie-library/internal/model"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return eb
}

func rating(f float64) *float64 { return &f }

func movieFixture() (*MovieHandler, *fakeMovies, *fakePublisher) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Terminator", OwnerID: owner.UserID, Rating: rating(8.5)})
	refs := fakeRefs{
		directors: map[uint64]bool{1: true},
		countries: map[uint64]bool{1: true},
		ages:      map[uint64]bool{1: true},
		genres:    map[uint64]bool{1: true, 2: true},
	}
	pub := &fakePublisher{}
	return NewMovieHandler(movies, refs, pub), movies, pub
}

func TestMovieWriteByStrangerForbiddenWhateverThePayload(t *testing.T) {
	h, movies, _ := movieFixture()
	payloads := []string{
		`{"title":"New title"}`,
		`{"rating":50,"genres":"drama"}`,
		`not json`,
	}
	for _, body := range payloads {
		rec := call(h.Update, http.MethodPut, "/v1/movies/1", body, stranger, "1")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("update %q: status %d, want 403", body, rec.Code)
		}
		eb := decodeError(t, rec.Body.String())
		if !strings.Contains(eb.Error, "can only be edited by the user who added it") {
			t.Errorf("unexpected message %q", eb.Error)
		}
	}
	rec := call(h.Delete, http.MethodDelete, "/v1/movies/1", "", stranger, "1")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete: status %d, want 403", rec.Code)
	}
	if movies.updates != 0 || len(movies.rows) != 1 {
		t.Fatalf("store touched by forbidden request")
	}
}

func TestMovieWriteByOwnerAndAdmin(t *testing.T) {
	h, movies, pub := movieFixture()

	rec := call(h.Update, http.MethodPatch, "/v1/movies/1", `{"rating":8.567}`, owner, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update: status %d body %s", rec.Code, rec.Body)
	}
	if got := *movies.rows[1].Rating; got != 8.57 {
		t.Errorf("rating = %v, want 8.57", got)
	}
	if movies.rows[1].Title != "Terminator" {
		t.Errorf("partial update changed title to %q", movies.rows[1].Title)
	}

	rec = call(h.Delete, http.MethodDelete, "/v1/movies/1", "", admin, "1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete: status %d", rec.Code)
	}
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if ev := pub.events[1]; ev.Actor != "admin" || ev.Method != http.MethodDelete || ev.EntityID != 1 {
		t.Errorf("unexpected delete event %+v", ev)
	}
}

func TestMovieCreateRequiresAuthentication(t *testing.T) {
	h, movies, pub := movieFixture()
	rec := call(h.Create, http.MethodPost, "/v1/movies", `{"title":"Alien","release_date":"1979-05-25","duration":117}`, anonymous, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	decodeError(t, rec.Body.String())
	if len(movies.rows) != 1 || len(pub.events) != 0 {
		t.Fatalf("anonymous create reached the store: %d rows, %d events", len(movies.rows), len(pub.events))
	}
}

func TestMovieBodyTypeErrorsNameTheField(t *testing.T) {
	tests := []struct {
		body  string
		field string
		msg   string
	}{
		{`{"title":"Alien","release_date":"1979-13-45","duration":117}`, "release_date", "Not a valid date."},
		{`{"title":"Alien","release_date":19790525,"duration":117}`, "release_date", "Not a valid date."},
		{`{"title":"Alien","release_date":"1979-05-25","duration":"long"}`, "duration", "Not a valid integer."},
		{`{"title":"Alien","release_date":"1979-05-25","duration":117,"director_id":"one"}`, "director_id", "Not a valid integer."},
		{`{"title":"Alien","release_date":"1979-05-25","duration":117,"rating":"high"}`, "rating", "Not a valid number."},
		{`{"title":42,"release_date":"1979-05-25","duration":117}`, "title", "Not a valid string."},
		{`{"title":"Alien","release_date":"1979-05-25","duration":117,"genres":"drama"}`, "genres", "Genres must be a list of integers."},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			h, movies, _ := movieFixture()
			rec := call(h.Create, http.MethodPost, "/v1/movies", tt.body, owner, "")
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, want 422 (body %s)", rec.Code, rec.Body)
			}
			if got := decodeError(t, rec.Body.String()).Fields[tt.field]; got != tt.msg {
				t.Errorf("fields.%s = %q, want %q", tt.field, got, tt.msg)
			}
			if len(movies.rows) != 1 {
				t.Fatal("invalid movie stored")
			}
		})
	}

	h, _, _ := movieFixture()
	rec := call(h.Update, http.MethodPatch, "/v1/movies/1", `{"duration":"long"}`, owner, "1")
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec.Body.String()).Fields["duration"] == "" {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}
	rec = call(h.Update, http.MethodPatch, "/v1/movies/1", `not json`, owner, "1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d, want 400", rec.Code)
	}
}

func TestMovieCreateSetsOwner(t *testing.T) {
	h, movies, pub := movieFixture()
	body := `{"title":"Alien","release_date":"1979-05-25","duration":117,"director_id":1,"genres":[2,1,2]}`
	rec := call(h.Create, http.MethodPost, "/v1/movies", body, stranger, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	var m model.Movie
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	stored := movies.rows[m.ID]
	if stored.OwnerID != stranger.UserID {
		t.Errorf("owner = %d, want %d", stored.OwnerID, stranger.UserID)
	}
	if len(stored.Genres) != 2 {
		t.Errorf("genres = %v, want 2 distinct ids", stored.Genres)
	}
	if len(pub.events) != 1 || pub.events[0].Entity != "movie" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestMovieCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing title", `{"release_date":"1979-05-25","duration":117}`, "title", "Missing data for required field."},
		{"unknown director", `{"title":"Alien","release_date":"1979-05-25","duration":117,"director_id":7}`, "director_id", "Director index 7 does not exist."},
		{"unknown country", `{"title":"Alien","release_date":"1979-05-25","duration":117,"country_id":4}`, "country_id", "Country index 4 does not exist."},
		{"unknown genre", `{"title":"Alien","release_date":"1979-05-25","duration":117,"genres":[1,9]}`, "genres", "Genre index 9 does not exist."},
		{"genres not ints", `{"title":"Alien","release_date":"1979-05-25","duration":117,"genres":["horror"]}`, "genres", "Genres must be a list of integers."},
		{"rating range", `{"title":"Alien","release_date":"1979-05-25","duration":117,"rating":11}`, "rating", "The rating must be in range from 0 to 10."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, movies, _ := movieFixture()
			rec := call(h.Create, http.MethodPost, "/v1/movies", tt.body, owner, "")
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, want 422 (body %s)", rec.Code, rec.Body)
			}
			if got := decodeError(t, rec.Body.String()).Fields[tt.field]; got != tt.msg {
				t.Errorf("fields[%s] = %q, want %q", tt.field, got, tt.msg)
			}
			if len(movies.rows) != 1 {
				t.Errorf("invalid movie stored")
			}
		})
	}
}

func TestMovieGetUnknownIsNotFound(t *testing.T) {
	h, _, _ := movieFixture()
	for _, id := range []string{"42", "abc", "0"} {
		rec := call(h.Get, http.MethodGet, "/v1/movies/"+id, "", anonymous, id)
		if rec.Code != http.StatusNotFound {
			t.Errorf("id %s: status %d, want 404", id, rec.Code)
		}
	}
}

func TestMovieList(t *testing.T) {
	h, movies, _ := movieFixture()

	rec := call(h.List, http.MethodGet, "/v1/movies?sort=rating;release_date,asc&page_size=5", "", anonymous, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	var page struct {
		Items    []model.Movie `json:"items"`
		Page     int           `json:"page"`
		PageSize int           `json:"page_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Page != 1 || page.PageSize != 5 {
		t.Errorf("unexpected page %+v", page)
	}
	if len(movies.listed.Sort) != 2 {
		t.Errorf("sort keys = %v", movies.listed.Sort)
	}

	bad := map[string]int{
		"/v1/movies?sort=title":                     http.StatusBadRequest,
		"/v1/movies?sort=rating,up":                 http.StatusBadRequest,
		"/v1/movies?page_size=51":                   http.StatusBadRequest,
		"/v1/movies?page=0":                         http.StatusBadRequest,
		"/v1/movies?release_date_range=2020-13-01,": http.StatusBadRequest,
		"/v1/movies?q=nothing-like-this":            http.StatusNotFound,
	}
	for target, want := range bad {
		rec := call(h.List, http.MethodGet, target, "", anonymous, "")
		if rec.Code != want {
			t.Errorf("%s: status %d, want %d", target, rec.Code, want)
		}
	}
}
