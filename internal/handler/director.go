package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/query"
	"github.com/iliyamo/movie-library/internal/repository"
	"github.com/iliyamo/movie-library/internal/validator"
)

// DirectorStore is the director persistence used by DirectorHandler.
type DirectorStore interface {
	Search(ctx context.Context, p query.DirectorParams) ([]model.Director, error)
	GetByID(ctx context.Context, id uint64) (*model.Director, error)
	Create(ctx context.Context, d *model.Director) error
	Update(ctx context.Context, d *model.Director) error
	Delete(ctx context.Context, id uint64) error
}

// DirectorHandler serves /directors. Director names are not unique.
type DirectorHandler struct{ Directors DirectorStore }

func NewDirectorHandler(s DirectorStore) *DirectorHandler { return &DirectorHandler{Directors: s} }

// List handles GET /directors with q, page and page_size.
func (h *DirectorHandler) List(c echo.Context) error {
	values, err := query.ParseRawQuery(c.Request().URL.RawQuery)
	if err != nil {
		return fail(c, err)
	}
	p, err := query.ParseDirectorParams(values)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Directors.Search(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pageResponse[model.Director]{Items: items, Page: p.Page.Number, PageSize: p.Page.Size})
}

func (h *DirectorHandler) Get(c echo.Context) error {
	id, err := pathID(c, repository.ErrDirectorNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	d, err := h.Directors.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DirectorHandler) Create(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	var in model.DirectorInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	v := validator.New()
	in.Validate(v, true)
	if err := v.Err(); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var d model.Director
	in.Apply(&d)
	if err := h.Directors.Create(ctx, &d); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DirectorHandler) Update(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrDirectorNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Directors.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	var in model.DirectorInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	v := validator.New()
	in.Validate(v, false)
	if err := v.Err(); err != nil {
		return fail(c, err)
	}
	in.Apply(d)
	if err := h.Directors.Update(ctx, d); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DirectorHandler) Delete(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrDirectorNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Directors.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
