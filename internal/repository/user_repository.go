package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/movie-library/internal/database"
	"github.com/iliyamo/movie-library/internal/model"
)

// UserRepo persists accounts in the users table.
type UserRepo struct{ DB *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, username, email, password_hash, is_admin, first_name, last_name, created_at, last_activity, sessions_valid_after"

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u                   model.User
		firstName, lastName sql.NullString
		validAfter          sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin,
		&firstName, &lastName, &u.CreatedAt, &u.LastActivity, &validAfter); err != nil {
		return nil, err
	}
	if validAfter.Valid {
		t := validAfter.Time.UTC()
		u.SessionsValidAfter = &t
	}
	u.FirstName = nullString(firstName)
	u.LastName = nullString(lastName)
	return &u, nil
}

// Create inserts u (PasswordHash must already be set) and fills its id and
// timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC().Truncate(time.Second)
	id, err := r.DB.Dialect.InsertID(ctx, r.DB,
		"INSERT INTO users (username, email, password_hash, is_admin, first_name, last_name, created_at, last_activity) VALUES (?,?,?,?,?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.FirstName, u.LastName, now, now)
	if err != nil {
		return translate("insert user", err, nil)
	}
	u.ID = id
	u.CreatedAt = now
	u.LastActivity = now
	return nil
}

// GetByLogin finds a user whose username or email equals login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? ORDER BY id LIMIT 1",
		login, login))
	if err != nil {
		return nil, translate("get user by login", err, ErrUserNotFound)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if err != nil {
		return nil, translate("get user", err, ErrUserNotFound)
	}
	return u, nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return exists(ctx, r.DB, "SELECT 1 FROM users WHERE username = ? LIMIT 1", username)
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.DB, "SELECT 1 FROM users WHERE email = ? LIMIT 1", email)
}

// TouchActivity stamps last_activity with the current time.
func (r *UserRepo) TouchActivity(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_activity = ? WHERE id = ?",
		time.Now().UTC().Truncate(time.Second), id)
	return translate("touch user activity", err, nil)
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return translate("update password", err, nil)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EndSessions invalidates every access token issued to the user before the
// current second.
func (r *UserRepo) EndSessions(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET sessions_valid_after = ? WHERE id = ?",
		time.Now().UTC().Truncate(time.Second), id)
	return translate("end user sessions", err, nil)
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
