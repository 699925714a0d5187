package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/query"
	"github.com/iliyamo/movie-library/internal/queue"
	"github.com/iliyamo/movie-library/internal/repository"
	"github.com/iliyamo/movie-library/internal/validator"
)

// MovieStore is the movie persistence used by MovieHandler.
type MovieStore interface {
	List(ctx context.Context, p query.MovieParams) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	Create(ctx context.Context, ownerID uint64, ch model.MovieChanges) (uint64, error)
	Update(ctx context.Context, id uint64, ch model.MovieChanges) error
	Delete(ctx context.Context, id uint64) error
}

// ReferenceStore answers existence checks for ids a movie points at.
type ReferenceStore interface {
	DirectorExists(ctx context.Context, id uint64) (bool, error)
	CountryExists(ctx context.Context, id uint64) (bool, error)
	AgeRestrictionExists(ctx context.Context, id uint64) (bool, error)
	MissingGenreIDs(ctx context.Context, ids []uint64) ([]uint64, error)
}

// MovieHandler serves /movies.
type MovieHandler struct {
	Movies   MovieStore
	Refs     ReferenceStore
	Activity ActivityPublisher // optional
}

func NewMovieHandler(movies MovieStore, refs ReferenceStore, activity ActivityPublisher) *MovieHandler {
	if movies == nil || refs == nil {
		panic("nil store passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies, Refs: refs, Activity: activity}
}

// List handles GET /movies.
func (h *MovieHandler) List(c echo.Context) error {
	values, err := query.ParseRawQuery(c.Request().URL.RawQuery)
	if err != nil {
		return fail(c, err)
	}
	p, err := query.ParseMovieParams(values)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	movies, err := h.Movies.List(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pageResponse[model.Movie]{Items: movies, Page: p.Page.Number, PageSize: p.Page.Size})
}

// Get handles GET /movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := pathID(c, repository.ErrMovieNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create handles POST /movies. The caller becomes the owner.
func (h *MovieHandler) Create(c echo.Context) error {
	who := identity(c)
	if err := guard(auth.RequireAuthenticated(who)); err != nil {
		return fail(c, err)
	}
	var in model.MovieInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ch, err := h.validate(ctx, in, true)
	if err != nil {
		return fail(c, err)
	}
	id, err := h.Movies.Create(ctx, who.UserID, ch)
	if err != nil {
		return fail(c, err)
	}
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	h.publish(c, m.ID, m.Title, in)
	return c.JSON(http.StatusCreated, m)
}

// Update handles PUT and PATCH /movies/:id. Both are partial: absent
// fields keep their value. Ownership is checked before the body is read,
// so a non-owner is refused whatever the payload.
func (h *MovieHandler) Update(c echo.Context) error {
	who := identity(c)
	if err := guard(auth.RequireAuthenticated(who)); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrMovieNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if err := guard(auth.RequireOwnerOrAdmin(who, current.OwnerID, "edited")); err != nil {
		return fail(c, err)
	}

	var in model.MovieInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ch, err := h.validate(ctx, in, false)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Movies.Update(ctx, id, ch); err != nil {
		return fail(c, err)
	}
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	h.publish(c, m.ID, m.Title, in)
	return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	who := identity(c)
	if err := guard(auth.RequireAuthenticated(who)); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrMovieNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if err := guard(auth.RequireOwnerOrAdmin(who, current.OwnerID, "deleted")); err != nil {
		return fail(c, err)
	}
	if err := h.Movies.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	h.publish(c, current.ID, current.Title, nil)
	return c.NoContent(http.StatusNoContent)
}

// validate runs the field rules and then checks that every referenced row
// exists. Reference checks only run once the fields themselves are valid.
func (h *MovieHandler) validate(ctx context.Context, in model.MovieInput, creating bool) (model.MovieChanges, error) {
	v := validator.New()
	ch := in.Validate(v, creating)
	if !v.Valid() {
		return ch, v.Err()
	}

	type ref struct {
		field, label string
		id           *uint64
		exists       func(context.Context, uint64) (bool, error)
	}
	refs := []ref{
		{"director_id", "Director", ch.DirectorID, h.Refs.DirectorExists},
		{"country_id", "Country", ch.CountryID, h.Refs.CountryExists},
		{"age_restriction_id", "Age restriction", ch.AgeRestrictionID, h.Refs.AgeRestrictionExists},
	}
	for _, r := range refs {
		if r.id == nil {
			continue
		}
		ok, err := r.exists(ctx, *r.id)
		if err != nil {
			return ch, err
		}
		v.Check(ok, r.field, fmt.Sprintf("%s index %d does not exist.", r.label, *r.id))
	}

	if ch.ReplaceGenres && len(ch.GenreIDs) > 0 {
		missing, err := h.Refs.MissingGenreIDs(ctx, ch.GenreIDs)
		if err != nil {
			return ch, err
		}
		if len(missing) > 0 {
			v.AddError("genres", fmt.Sprintf("Genre index %d does not exist.", missing[0]))
		}
	}
	return ch, v.Err()
}

// publish emits the activity event for a movie write. Broker failures are
// logged only.
func (h *MovieHandler) publish(c echo.Context, id uint64, title string, payload any) {
	if h.Activity == nil {
		return
	}
	who := identity(c)
	ev := queue.ActivityEvent{
		Actor:      who.Name(),
		UserID:     who.UserID,
		Method:     c.Request().Method,
		Path:       c.Request().URL.Path,
		Entity:     "movie",
		EntityID:   id,
		Summary:    fmt.Sprintf("<Movie %d %q>", id, title),
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Activity.Publish(ctx, ev); err != nil {
		c.Logger().Warnf("activity event for movie %d not published: %v", id, err)
	}
}
