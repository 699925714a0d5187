package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/repository"
	"github.com/iliyamo/movie-library/internal/validator"
)

const msgTitleTaken = "The title value already exists."

// GenreStore is the genre persistence used by GenreHandler.
type GenreStore interface {
	List(ctx context.Context) ([]model.Genre, error)
	GetByID(ctx context.Context, id uint64) (*model.Genre, error)
	TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error)
	Create(ctx context.Context, g *model.Genre) error
	Update(ctx context.Context, g *model.Genre) error
	Delete(ctx context.Context, id uint64) error
}

// GenreHandler serves /genres. Writes are admin only.
type GenreHandler struct{ Genres GenreStore }

func NewGenreHandler(s GenreStore) *GenreHandler { return &GenreHandler{Genres: s} }

func (h *GenreHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Genres.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse[model.Genre]{Items: items})
}

func (h *GenreHandler) Get(c echo.Context) error {
	id, err := pathID(c, repository.ErrGenreNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GenreHandler) Create(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	var in model.GenreInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var g model.Genre
	if err := h.write(ctx, in, &g, true); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// Update handles PUT and PATCH /genres/:id.
func (h *GenreHandler) Update(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrGenreNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	var in model.GenreInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	if err := h.write(ctx, in, g, false); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GenreHandler) Delete(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrGenreNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Genres.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// write validates in, checks title uniqueness against the stored rows and
// persists g. The lookup and the insert are separate statements; a
// concurrent duplicate that slips between them is caught by the unique
// index and reported the same way.
func (h *GenreHandler) write(ctx context.Context, in model.GenreInput, g *model.Genre, creating bool) error {
	v := validator.New()
	in.Validate(v, creating)
	if err := v.Err(); err != nil {
		return err
	}
	if in.Title != nil {
		taken, err := h.Genres.TitleTaken(ctx, *in.Title, g.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("title", msgTitleTaken)
		}
	}
	in.Apply(g)
	if creating {
		return conflictOn("title", h.Genres.Create(ctx, g))
	}
	return conflictOn("title", h.Genres.Update(ctx, g))
}

// conflictOn attaches field to a store-level duplicate error.
func conflictOn(field string, err error) error {
	if apperr.KindOf(err) != apperr.KindConflict {
		return err
	}
	return apperr.Conflict(field, "The "+field+" value already exists.").Wrap(err)
}
