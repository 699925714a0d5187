// Package repository contains the raw SQL data access layer. Every store
// works against database.Conn so statements are rebound for the configured
// dialect.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/database"
)

var (
	ErrMovieNotFound          = apperr.NotFound("Movie not found.")
	ErrNoMoviesFound          = apperr.NotFound("No movies found.")
	ErrDirectorNotFound       = apperr.NotFound("Director not found.")
	ErrNoDirectorsFound       = apperr.NotFound("No directors found.")
	ErrGenreNotFound          = apperr.NotFound("Genre not found.")
	ErrNoGenresFound          = apperr.NotFound("No genres found.")
	ErrCountryNotFound        = apperr.NotFound("Country not found.")
	ErrNoCountriesFound       = apperr.NotFound("No countries found.")
	ErrAgeRestrictionNotFound = apperr.NotFound("Age restriction not found.")
	ErrNoAgeRestrictionsFound = apperr.NotFound("No age restrictions found.")
	ErrUserNotFound           = apperr.NotFound("User not found.")

	// ErrConflict is returned when an insert or update hits a unique
	// constraint that the preceding lookup did not see.
	ErrConflict = apperr.Conflict("", "A record with the same unique value already exists.")

	// ErrInvalidRefresh covers unknown, expired and revoked refresh tokens.
	ErrInvalidRefresh = apperr.Authentication("Invalid refresh token.")
)

// translate maps driver errors to repository errors and wraps the rest
// with op for context.
func translate(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows) && notFound != nil:
		return notFound
	case database.IsDuplicate(err):
		return ErrConflict.Wrap(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// exists runs a SELECT 1 style query and reports whether a row came back.
func exists(ctx context.Context, c database.Conn, query string, args ...any) (bool, error) {
	var one int
	err := c.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// deleteByID removes one row and reports notFound when nothing matched.
func deleteByID(ctx context.Context, c database.Conn, table string, id uint64, notFound error) error {
	res, err := c.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return translate("delete "+table, err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
