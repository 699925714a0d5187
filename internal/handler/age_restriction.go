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

// AgeRestrictionStore is the persistence used by AgeRestrictionHandler.
type AgeRestrictionStore interface {
	List(ctx context.Context) ([]model.AgeRestriction, error)
	GetByID(ctx context.Context, id uint64) (*model.AgeRestriction, error)
	TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error)
	Create(ctx context.Context, a *model.AgeRestriction) error
	Update(ctx context.Context, a *model.AgeRestriction) error
	Delete(ctx context.Context, id uint64) error
}

// AgeRestrictionHandler serves /age_restrictions. Writes are admin only.
type AgeRestrictionHandler struct{ Restrictions AgeRestrictionStore }

func NewAgeRestrictionHandler(s AgeRestrictionStore) *AgeRestrictionHandler {
	return &AgeRestrictionHandler{Restrictions: s}
}

func (h *AgeRestrictionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Restrictions.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse[model.AgeRestriction]{Items: items})
}

func (h *AgeRestrictionHandler) Get(c echo.Context) error {
	id, err := pathID(c, repository.ErrAgeRestrictionNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	a, err := h.Restrictions.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AgeRestrictionHandler) Create(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	var in model.AgeRestrictionInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var a model.AgeRestriction
	if err := h.write(ctx, in, &a, true); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AgeRestrictionHandler) Update(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrAgeRestrictionNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Restrictions.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	var in model.AgeRestrictionInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	if err := h.write(ctx, in, a, false); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AgeRestrictionHandler) Delete(c echo.Context) error {
	if err := guard(auth.RequireAdmin(identity(c))); err != nil {
		return fail(c, err)
	}
	id, err := pathID(c, repository.ErrAgeRestrictionNotFound)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Restrictions.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AgeRestrictionHandler) write(ctx context.Context, in model.AgeRestrictionInput, a *model.AgeRestriction, creating bool) error {
	v := validator.New()
	in.Validate(v, creating)
	if err := v.Err(); err != nil {
		return err
	}
	if in.Title != nil {
		taken, err := h.Restrictions.TitleTaken(ctx, *in.Title, a.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("title", msgTitleTaken)
		}
	}
	in.Apply(a)
	if creating {
		return conflictOn("title", h.Restrictions.Create(ctx, a))
	}
	return conflictOn("title", h.Restrictions.Update(ctx, a))
}
