package handler

import (
	"context"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/middleware"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/query"
	"github.com/iliyamo/movie-library/internal/queue"
	"github.com/iliyamo/movie-library/internal/repository"
)

var (
	anonymous = auth.Anonymous()
	owner     = auth.Identity{UserID: 2, Username: "username"}
	stranger  = auth.Identity{UserID: 3, Username: "another"}
	admin     = auth.Identity{UserID: 1, Username: "admin", IsAdmin: true}
)

// call runs h against a JSON request as who. id fills the :id parameter
// when not empty.
func call(h echo.HandlerFunc, method, target, body string, who auth.Identity, id string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	middleware.SetIdentity(c, who)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

type fakeMovies struct {
	mu      sync.Mutex
	rows    map[uint64]*model.Movie
	next    uint64
	updates int
	listed  *query.MovieParams
}

func newFakeMovies(ms ...model.Movie) *fakeMovies {
	f := &fakeMovies{rows: map[uint64]*model.Movie{}, next: 100}
	for i := range ms {
		m := ms[i]
		f.rows[m.ID] = &m
	}
	return f
}

func (f *fakeMovies) List(_ context.Context, p query.MovieParams) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = &p
	var out []model.Movie
	for _, m := range f.rows {
		if p.Search == "" || strings.Contains(strings.ToLower(m.Title), strings.ToLower(p.Search)) {
			out = append(out, *m)
		}
	}
	if len(out) == 0 {
		return nil, repository.ErrNoMoviesFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMovies) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMovies) Create(_ context.Context, ownerID uint64, ch model.MovieChanges) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	m := &model.Movie{ID: f.next, OwnerID: ownerID, Owner: &model.UserInfo{ID: ownerID}}
	applyChanges(m, ch)
	f.rows[m.ID] = m
	return m.ID, nil
}

func (f *fakeMovies) Update(_ context.Context, id uint64, ch model.MovieChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return repository.ErrMovieNotFound
	}
	f.updates++
	applyChanges(m, ch)
	return nil
}

func (f *fakeMovies) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrMovieNotFound
	}
	delete(f.rows, id)
	return nil
}

func applyChanges(m *model.Movie, ch model.MovieChanges) {
	if ch.Title != nil {
		m.Title = *ch.Title
	}
	if ch.ReleaseDate != nil {
		m.ReleaseDate = *ch.ReleaseDate
	}
	if ch.Duration != nil {
		m.Duration = *ch.Duration
	}
	if ch.Rating != nil {
		m.Rating = ch.Rating
	}
	if ch.ReplaceGenres {
		m.Genres = m.Genres[:0]
		for _, id := range ch.GenreIDs {
			m.Genres = append(m.Genres, model.Genre{ID: id})
		}
	}
}

type fakeRefs struct {
	directors, countries, ages, genres map[uint64]bool
}

func (f fakeRefs) DirectorExists(_ context.Context, id uint64) (bool, error) {
	return f.directors[id], nil
}

func (f fakeRefs) CountryExists(_ context.Context, id uint64) (bool, error) {
	return f.countries[id], nil
}

func (f fakeRefs) AgeRestrictionExists(_ context.Context, id uint64) (bool, error) {
	return f.ages[id], nil
}

func (f fakeRefs) MissingGenreIDs(_ context.Context, ids []uint64) ([]uint64, error) {
	var missing []uint64
	for _, id := range ids {
		if !f.genres[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fakeGenres struct {
	rows map[uint64]model.Genre
	next uint64
	// raceOnCreate makes Create fail like a concurrent insert of the same title.
	raceOnCreate bool
}

func (f *fakeGenres) List(context.Context) ([]model.Genre, error) {
	if len(f.rows) == 0 {
		return nil, repository.ErrNoGenresFound
	}
	out := make([]model.Genre, 0, len(f.rows))
	for _, g := range f.rows {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGenres) GetByID(_ context.Context, id uint64) (*model.Genre, error) {
	g, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrGenreNotFound
	}
	return &g, nil
}

func (f *fakeGenres) TitleTaken(_ context.Context, title string, excludeID uint64) (bool, error) {
	for _, g := range f.rows {
		if g.Title == title && g.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGenres) Create(_ context.Context, g *model.Genre) error {
	if f.raceOnCreate {
		return repository.ErrConflict
	}
	f.next++
	g.ID = f.next
	f.rows[g.ID] = *g
	return nil
}

func (f *fakeGenres) Update(_ context.Context, g *model.Genre) error {
	f.rows[g.ID] = *g
	return nil
}

func (f *fakeGenres) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrGenreNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeUsers struct {
	byID  map[uint64]*model.User
	next  uint64
	ended []uint64
}

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]*model.User{}, next: 10}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.next++
	u.ID = f.next
	u.CreatedAt = time.Now().UTC()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UsernameTaken(_ context.Context, username string) (bool, error) {
	_, err := f.GetByLogin(context.Background(), username)
	return err == nil, nil
}

func (f *fakeUsers) EmailTaken(ctx context.Context, email string) (bool, error) {
	return f.UsernameTaken(ctx, email)
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) EndSessions(_ context.Context, id uint64) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.SessionsValidAfter = &now
	f.ended = append(f.ended, id)
	return nil
}

type fakeTokens struct {
	owners  map[string]uint64
	revoked map[string]bool
	allFor  []uint64
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{owners: map[string]uint64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.owners[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	uid, ok := f.owners[hash]
	if !ok || f.revoked[hash] {
		return 0, repository.ErrInvalidRefresh
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.revoked[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.allFor = append(f.allFor, userID)
	for h, uid := range f.owners {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}
