package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/movie-library/internal/database"
	"github.com/iliyamo/movie-library/internal/model"
)

// GenreRepo persists genres.
type GenreRepo struct{ db *database.DB }

func NewGenreRepo(db *database.DB) *GenreRepo { return &GenreRepo{db: db} }

// List returns all genres ordered by id, or ErrNoGenresFound.
func (r *GenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title FROM genres ORDER BY id")
	if err != nil {
		return nil, translate("list genres", err, nil)
	}
	defer rows.Close()
	var out []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Title); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoGenresFound
	}
	return out, nil
}

func (r *GenreRepo) GetByID(ctx context.Context, id uint64) (*model.Genre, error) {
	var g model.Genre
	err := r.db.QueryRowContext(ctx, "SELECT id, title FROM genres WHERE id = ?", id).Scan(&g.ID, &g.Title)
	if err != nil {
		return nil, translate("get genre", err, ErrGenreNotFound)
	}
	return &g, nil
}

// TitleTaken reports whether another genre (id != excludeID) has title.
func (r *GenreRepo) TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM genres WHERE title = ? AND id <> ? LIMIT 1", title, excludeID)
}

func (r *GenreRepo) Create(ctx context.Context, g *model.Genre) error {
	id, err := r.db.Dialect.InsertID(ctx, r.db, "INSERT INTO genres (title) VALUES (?)", g.Title)
	if err != nil {
		return translate("insert genre", err, nil)
	}
	g.ID = id
	return nil
}

func (r *GenreRepo) Update(ctx context.Context, g *model.Genre) error {
	_, err := r.db.ExecContext(ctx, "UPDATE genres SET title = ? WHERE id = ?", g.Title, g.ID)
	return translate("update genre", err, nil)
}

func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "genres", id, ErrGenreNotFound)
}

// CountryRepo persists countries.
type CountryRepo struct{ db *database.DB }

func NewCountryRepo(db *database.DB) *CountryRepo { return &CountryRepo{db: db} }

func (r *CountryRepo) List(ctx context.Context) ([]model.Country, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title, abbreviation FROM countries ORDER BY id")
	if err != nil {
		return nil, translate("list countries", err, nil)
	}
	defer rows.Close()
	var out []model.Country
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.Title, &c.Abbreviation); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoCountriesFound
	}
	return out, nil
}

func (r *CountryRepo) GetByID(ctx context.Context, id uint64) (*model.Country, error) {
	var c model.Country
	err := r.db.QueryRowContext(ctx, "SELECT id, title, abbreviation FROM countries WHERE id = ?", id).
		Scan(&c.ID, &c.Title, &c.Abbreviation)
	if err != nil {
		return nil, translate("get country", err, ErrCountryNotFound)
	}
	return &c, nil
}

func (r *CountryRepo) TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM countries WHERE title = ? AND id <> ? LIMIT 1", title, excludeID)
}

func (r *CountryRepo) AbbreviationTaken(ctx context.Context, abbr string, excludeID uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM countries WHERE abbreviation = ? AND id <> ? LIMIT 1", abbr, excludeID)
}

func (r *CountryRepo) Create(ctx context.Context, c *model.Country) error {
	id, err := r.db.Dialect.InsertID(ctx, r.db,
		"INSERT INTO countries (title, abbreviation) VALUES (?, ?)", c.Title, c.Abbreviation)
	if err != nil {
		return translate("insert country", err, nil)
	}
	c.ID = id
	return nil
}

func (r *CountryRepo) Update(ctx context.Context, c *model.Country) error {
	_, err := r.db.ExecContext(ctx, "UPDATE countries SET title = ?, abbreviation = ? WHERE id = ?",
		c.Title, c.Abbreviation, c.ID)
	return translate("update country", err, nil)
}

func (r *CountryRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "countries", id, ErrCountryNotFound)
}

// AgeRestrictionRepo persists age restrictions.
type AgeRestrictionRepo struct{ db *database.DB }

func NewAgeRestrictionRepo(db *database.DB) *AgeRestrictionRepo {
	return &AgeRestrictionRepo{db: db}
}

func (r *AgeRestrictionRepo) List(ctx context.Context) ([]model.AgeRestriction, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title FROM age_restrictions ORDER BY id")
	if err != nil {
		return nil, translate("list age restrictions", err, nil)
	}
	defer rows.Close()
	var out []model.AgeRestriction
	for rows.Next() {
		var a model.AgeRestriction
		if err := rows.Scan(&a.ID, &a.Title); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoAgeRestrictionsFound
	}
	return out, nil
}

func (r *AgeRestrictionRepo) GetByID(ctx context.Context, id uint64) (*model.AgeRestriction, error) {
	var a model.AgeRestriction
	err := r.db.QueryRowContext(ctx, "SELECT id, title FROM age_restrictions WHERE id = ?", id).Scan(&a.ID, &a.Title)
	if err != nil {
		return nil, translate("get age restriction", err, ErrAgeRestrictionNotFound)
	}
	return &a, nil
}

func (r *AgeRestrictionRepo) TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM age_restrictions WHERE title = ? AND id <> ? LIMIT 1", title, excludeID)
}

func (r *AgeRestrictionRepo) Create(ctx context.Context, a *model.AgeRestriction) error {
	id, err := r.db.Dialect.InsertID(ctx, r.db, "INSERT INTO age_restrictions (title) VALUES (?)", a.Title)
	if err != nil {
		return translate("insert age restriction", err, nil)
	}
	a.ID = id
	return nil
}

func (r *AgeRestrictionRepo) Update(ctx context.Context, a *model.AgeRestriction) error {
	_, err := r.db.ExecContext(ctx, "UPDATE age_restrictions SET title = ? WHERE id = ?", a.Title, a.ID)
	return translate("update age restriction", err, nil)
}

func (r *AgeRestrictionRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "age_restrictions", id, ErrAgeRestrictionNotFound)
}

// ReferenceRepo answers existence questions about rows a movie points to.
type ReferenceRepo struct{ db *database.DB }

func NewReferenceRepo(db *database.DB) *ReferenceRepo { return &ReferenceRepo{db: db} }

func (r *ReferenceRepo) DirectorExists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM directors WHERE id = ?", id)
}

func (r *ReferenceRepo) CountryExists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM countries WHERE id = ?", id)
}

func (r *ReferenceRepo) AgeRestrictionExists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM age_restrictions WHERE id = ?", id)
}

// MissingGenreIDs returns the ids that have no genre row, in input order.
func (r *ReferenceRepo) MissingGenreIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM genres WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, translate("lookup genres", err, nil)
	}
	defer rows.Close()
	found := make(map[uint64]bool, len(ids))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []uint64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
