package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/movie-library/internal/database"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/query"
)

// MovieRepo persists movies with their genre links and runs the movie list
// query.
type MovieRepo struct{ db *database.DB }

func NewMovieRepo(db *database.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieSelect = `SELECT
		m.id, m.title, m.release_date, m.duration, m.rating, m.description, m.preview, m.budget,
		m.user_id, u.username,
		m.director_id, d.first_name, d.last_name,
		m.country_id, c.title, c.abbreviation,
		m.age_restriction_id, a.title
	FROM movies m
	LEFT JOIN users u            ON u.id = m.user_id
	LEFT JOIN directors d        ON d.id = m.director_id
	LEFT JOIN countries c        ON c.id = m.country_id
	LEFT JOIN age_restrictions a ON a.id = m.age_restriction_id`

func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var (
		m                       model.Movie
		releaseDate             time.Time
		rating, budget          sql.NullFloat64
		description, preview    sql.NullString
		userID, directorID      sql.NullInt64
		countryID, ageID        sql.NullInt64
		username                sql.NullString
		dirFirst, dirLast       sql.NullString
		countryTitle, countryAb sql.NullString
		ageTitle                sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Title, &releaseDate, &m.Duration, &rating, &description, &preview, &budget,
		&userID, &username,
		&directorID, &dirFirst, &dirLast,
		&countryID, &countryTitle, &countryAb,
		&ageID, &ageTitle); err != nil {
		return nil, err
	}
	m.ReleaseDate = model.NewDate(releaseDate)
	if rating.Valid {
		m.Rating = &rating.Float64
	}
	if budget.Valid {
		m.Budget = &budget.Float64
	}
	m.Description = nullString(description)
	m.Preview = nullString(preview)
	if userID.Valid {
		m.OwnerID = uint64(userID.Int64)
		m.Owner = &model.UserInfo{ID: m.OwnerID, Username: username.String}
	}
	if directorID.Valid {
		m.Director = &model.DirectorInfo{ID: uint64(directorID.Int64), FirstName: dirFirst.String, LastName: dirLast.String}
	}
	if countryID.Valid {
		m.Country = &model.Country{ID: uint64(countryID.Int64), Title: countryTitle.String, Abbreviation: countryAb.String}
	}
	if ageID.Valid {
		m.AgeRestriction = &model.AgeRestriction{ID: uint64(ageID.Int64), Title: ageTitle.String}
	}
	m.Genres = []model.Genre{}
	return &m, nil
}

// List runs the movie list query and returns the page in result order, or
// ErrNoMoviesFound.
func (r *MovieRepo) List(ctx context.Context, p query.MovieParams) ([]model.Movie, error) {
	st := query.MovieIDs(p)
	rows, err := r.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, translate("list movie ids", err, nil)
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoMoviesFound
	}
	return r.loadByIDs(ctx, ids)
}

// loadByIDs fetches full movies for ids and keeps the order of ids.
func (r *MovieRepo) loadByIDs(ctx context.Context, ids []uint64) ([]model.Movie, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, movieSelect+" WHERE m.id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, translate("load movies", err, nil)
	}
	defer rows.Close()

	byID := make(map[uint64]*model.Movie, len(ids))
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachGenres(ctx, byID, args); err != nil {
		return nil, err
	}

	out := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *MovieRepo) attachGenres(ctx context.Context, byID map[uint64]*model.Movie, ids []any) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mg.movie_id, g.id, g.title
		   FROM movie_genres mg
		   JOIN genres g ON g.id = mg.genre_id
		  WHERE mg.movie_id IN (`+placeholders(len(ids))+`)
		  ORDER BY mg.movie_id, g.id`, ids...)
	if err != nil {
		return translate("load movie genres", err, nil)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			movieID uint64
			g       model.Genre
		)
		if err := rows.Scan(&movieID, &g.ID, &g.Title); err != nil {
			return err
		}
		if m, ok := byID[movieID]; ok {
			m.Genres = append(m.Genres, g)
		}
	}
	return rows.Err()
}

// GetByID fetches one movie with its references and genres.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	movies, err := r.loadByIDs(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, ErrMovieNotFound
	}
	return &movies[0], nil
}

// Create inserts a movie owned by ownerID together with its genre links.
func (r *MovieRepo) Create(ctx context.Context, ownerID uint64, ch model.MovieChanges) (id uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	cols, args := movieAssignments(ch)
	cols = append(cols, "user_id")
	args = append(args, ownerID)
	q := "INSERT INTO movies (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	id, err = r.db.Dialect.InsertID(ctx, tx, q, args...)
	if err != nil {
		return 0, translate("insert movie", err, nil)
	}
	if err = insertMovieGenres(ctx, tx, id, ch.GenreIDs); err != nil {
		return 0, err
	}
	return id, nil
}

// Update writes the supplied fields and, when requested, replaces the whole
// genre set.
func (r *MovieRepo) Update(ctx context.Context, id uint64, ch model.MovieChanges) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	var found int
	if err = tx.QueryRowContext(ctx, "SELECT 1 FROM movies WHERE id = ?", id).Scan(&found); err != nil {
		return translate("lock movie", err, ErrMovieNotFound)
	}

	cols, args := movieAssignments(ch)
	if len(cols) > 0 {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		args = append(args, id)
		if _, err = tx.ExecContext(ctx, "UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return translate("update movie", err, nil)
		}
	}

	if ch.ReplaceGenres {
		if _, err = tx.ExecContext(ctx, "DELETE FROM movie_genres WHERE movie_id = ?", id); err != nil {
			return translate("clear movie genres", err, nil)
		}
		if err = insertMovieGenres(ctx, tx, id, ch.GenreIDs); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a movie; its genre links go with it.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM movie_genres WHERE movie_id = ?", id); err != nil {
		return translate("delete movie genres", err, nil)
	}
	return deleteByID(ctx, tx, "movies", id, ErrMovieNotFound)
}

func insertMovieGenres(ctx context.Context, c database.Conn, movieID uint64, genreIDs []uint64) error {
	if len(genreIDs) == 0 {
		return nil
	}
	values := make([]string, len(genreIDs))
	args := make([]any, 0, 2*len(genreIDs))
	for i, gid := range genreIDs {
		values[i] = "(?, ?)"
		args = append(args, movieID, gid)
	}
	_, err := c.ExecContext(ctx,
		"INSERT INTO movie_genres (movie_id, genre_id) VALUES "+strings.Join(values, ", "), args...)
	return translate("insert movie genres", err, nil)
}

// movieAssignments lists the columns set in ch with their values.
func movieAssignments(ch model.MovieChanges) ([]string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if ch.Title != nil {
		add("title", *ch.Title)
	}
	if ch.ReleaseDate != nil {
		add("release_date", ch.ReleaseDate.Format(model.DateLayout))
	}
	if ch.Duration != nil {
		add("duration", *ch.Duration)
	}
	if ch.Rating != nil {
		add("rating", *ch.Rating)
	}
	if ch.Description != nil {
		add("description", *ch.Description)
	}
	if ch.Preview != nil {
		add("preview", *ch.Preview)
	}
	if ch.Budget != nil {
		add("budget", *ch.Budget)
	}
	if ch.DirectorID != nil {
		add("director_id", *ch.DirectorID)
	}
	if ch.CountryID != nil {
		add("country_id", *ch.CountryID)
	}
	if ch.AgeRestrictionID != nil {
		add("age_restriction_id", *ch.AgeRestrictionID)
	}
	return cols, args
}
