package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-library/internal/database"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/query"
)

// DirectorRepo persists directors and runs director searches.
type DirectorRepo struct{ db *database.DB }

func NewDirectorRepo(db *database.DB) *DirectorRepo { return &DirectorRepo{db: db} }

func scanDirector(row interface{ Scan(...any) error }) (*model.Director, error) {
	var (
		d    model.Director
		desc sql.NullString
	)
	if err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &desc); err != nil {
		return nil, err
	}
	d.Description = nullString(desc)
	return &d, nil
}

// Search returns one page of directors whose "first last" contains the
// search text, or ErrNoDirectorsFound.
func (r *DirectorRepo) Search(ctx context.Context, p query.DirectorParams) ([]model.Director, error) {
	st := query.DirectorPage(p)
	rows, err := r.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, translate("search directors", err, nil)
	}
	defer rows.Close()

	var out []model.Director
	for rows.Next() {
		d, err := scanDirector(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoDirectorsFound
	}
	return out, nil
}

func (r *DirectorRepo) GetByID(ctx context.Context, id uint64) (*model.Director, error) {
	d, err := scanDirector(r.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, description FROM directors WHERE id = ?", id))
	if err != nil {
		return nil, translate("get director", err, ErrDirectorNotFound)
	}
	return d, nil
}

func (r *DirectorRepo) Create(ctx context.Context, d *model.Director) error {
	id, err := r.db.Dialect.InsertID(ctx, r.db,
		"INSERT INTO directors (first_name, last_name, description) VALUES (?, ?, ?)",
		d.FirstName, d.LastName, d.Description)
	if err != nil {
		return translate("insert director", err, nil)
	}
	d.ID = id
	return nil
}

func (r *DirectorRepo) Update(ctx context.Context, d *model.Director) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE directors SET first_name = ?, last_name = ?, description = ? WHERE id = ?",
		d.FirstName, d.LastName, d.Description, d.ID)
	return translate("update director", err, nil)
}

// Delete removes a director; movies pointing at it keep a NULL director.
func (r *DirectorRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "directors", id, ErrDirectorNotFound)
}
