package database

import (
	"context"
	"fmt"
)

// Tables in creation order; drops run in reverse.
var tableOrder = []string{
	"users",
	"refresh_tokens",
	"directors",
	"genres",
	"countries",
	"age_restrictions",
	"movies",
	"movie_genres",
}

var mysqlDDL = map[string]string{
	"users": `CREATE TABLE users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(150) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		first_name VARCHAR(50) NULL,
		last_name VARCHAR(50) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_activity DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sessions_valid_after DATETIME NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"refresh_tokens": `CREATE TABLE refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"directors": `CREATE TABLE directors (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(50) NOT NULL,
		last_name VARCHAR(50) NOT NULL,
		description TEXT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"genres": `CREATE TABLE genres (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(100) NOT NULL UNIQUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"countries": `CREATE TABLE countries (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(100) NOT NULL UNIQUE,
		abbreviation CHAR(2) NOT NULL UNIQUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"age_restrictions": `CREATE TABLE age_restrictions (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(3) NOT NULL UNIQUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"movies": `CREATE TABLE movies (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		release_date DATE NOT NULL,
		duration INT NOT NULL,
		rating DECIMAL(4,2) NULL,
		description TEXT NULL,
		preview VARCHAR(255) NULL,
		budget DOUBLE NULL,
		user_id BIGINT UNSIGNED NULL,
		director_id BIGINT UNSIGNED NULL,
		country_id BIGINT UNSIGNED NULL,
		age_restriction_id BIGINT UNSIGNED NULL,
		INDEX idx_movies_release_date (release_date),
		INDEX idx_movies_rating (rating),
		CONSTRAINT fk_movies_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL,
		CONSTRAINT fk_movies_director FOREIGN KEY (director_id) REFERENCES directors(id) ON DELETE SET NULL,
		CONSTRAINT fk_movies_country FOREIGN KEY (country_id) REFERENCES countries(id) ON DELETE SET NULL,
		CONSTRAINT fk_movies_age FOREIGN KEY (age_restriction_id) REFERENCES age_restrictions(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"movie_genres": `CREATE TABLE movie_genres (
		movie_id BIGINT UNSIGNED NOT NULL,
		genre_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (movie_id, genre_id),
		CONSTRAINT fk_mg_movie FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		CONSTRAINT fk_mg_genre FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresDDL = map[string]string{
	"users": `CREATE TABLE users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(150) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		first_name VARCHAR(50) NULL,
		last_name VARCHAR(50) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC'),
		last_activity TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC'),
		sessions_valid_after TIMESTAMP NULL
	)`,
	"refresh_tokens": `CREATE TABLE refresh_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')
	)`,
	"directors": `CREATE TABLE directors (
		id BIGSERIAL PRIMARY KEY,
		first_name VARCHAR(50) NOT NULL,
		last_name VARCHAR(50) NOT NULL,
		description TEXT NULL
	)`,
	"genres": `CREATE TABLE genres (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(100) NOT NULL UNIQUE
	)`,
	"countries": `CREATE TABLE countries (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(100) NOT NULL UNIQUE,
		abbreviation CHAR(2) NOT NULL UNIQUE
	)`,
	"age_restrictions": `CREATE TABLE age_restrictions (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(3) NOT NULL UNIQUE
	)`,
	"movies": `CREATE TABLE movies (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		release_date DATE NOT NULL,
		duration INTEGER NOT NULL,
		rating NUMERIC(4,2) NULL,
		description TEXT NULL,
		preview VARCHAR(255) NULL,
		budget DOUBLE PRECISION NULL,
		user_id BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		director_id BIGINT NULL REFERENCES directors(id) ON DELETE SET NULL,
		country_id BIGINT NULL REFERENCES countries(id) ON DELETE SET NULL,
		age_restriction_id BIGINT NULL REFERENCES age_restrictions(id) ON DELETE SET NULL
	)`,
	"movie_genres": `CREATE TABLE movie_genres (
		movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		PRIMARY KEY (movie_id, genre_id)
	)`,
}

// DropTables removes every table of the service, children first.
func DropTables(ctx context.Context, db *DB) error {
	for i := len(tableOrder) - 1; i >= 0; i-- {
		stmt := "DROP TABLE IF EXISTS " + tableOrder[i]
		if db.Dialect == Postgres {
			stmt += " CASCADE"
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop %s: %w", tableOrder[i], err)
		}
	}
	return nil
}

// CreateTables creates every table of the service, parents first.
func CreateTables(ctx context.Context, db *DB) error {
	ddl := mysqlDDL
	if db.Dialect == Postgres {
		ddl = postgresDDL
	}
	for _, name := range tableOrder {
		if _, err := db.ExecContext(ctx, ddl[name]); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}

// ResetTables drops and recreates all tables.
func ResetTables(ctx context.Context, db *DB) error {
	if err := DropTables(ctx, db); err != nil {
		return err
	}
	return CreateTables(ctx, db)
}
