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

// CountryStore is the country persistence used by CountryHandler.
type CountryStore interface {
	List(ctx context.Context) ([]model.Country, error)
	GetByID(ctx context.Context, id uint64) (*model.Country, error)
	TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error)
	AbbreviationTaken(ctx context.Context, abbr string, excludeID uint64) (bool, error)
	Create(ctx context.Context, c *model.Country) error
	Update(ctx context.Context, c *model.Country) error
	Delete(ctx context.Context, id uint64) error
}

// CountryHandler serves /countries. Writes are admin only.
type CountryHandler struct{ Countries CountryStore }

func NewCountryHandler(s CountryStore) *CountryHandler { return &CountryHandler{Countries: s} }

func (h *CountryHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Countries.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse[model.Country]{Items: items})
}

func (h *CountryHandler) Get(c echo.Context) error {
	id, err := pathID(c, repository.ErrCountryNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	country, err := h.Countries.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, country)
}

func (h *CountryHandler) Create(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	var in model.CountryInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var country model.Country
	if err := h.write(ctx, in, &country, true); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, country)
}

func (h *CountryHandler) Update(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrCountryNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	country, err := h.Countries.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	var in model.CountryInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	if err := h.write(ctx, in, country, false); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, country)
}

func (h *CountryHandler) Delete(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrCountryNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Countries.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CountryHandler) write(ctx context.Context, in model.CountryInput, country *model.Country, creating bool) error {
	v := validator.New()
	in.Validate(v, creating)
	if err := v.Err(); err != nil {
		return err
	}
	if in.Title != nil {
		taken, err := h.Countries.TitleTaken(ctx, *in.Title, country.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("title", msgTitleTaken)
		}
	}
	if in.Abbreviation != nil {
		taken, err := h.Countries.AbbreviationTaken(ctx, *in.Abbreviation, country.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("abbreviation", "The abbreviation value already exists.")
		}
	}
	in.Apply(country)
	// with two unique columns the store cannot say which one collided
	if creating {
		return h.Countries.Create(ctx, country)
	}
	return h.Countries.Update(ctx, country)
}
