package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Dialect names the SQL flavour of the connected server. Queries are written
// with `?` placeholders and rebound per dialect.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a DB_DRIVER value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Rebind rewrites `?` placeholders into `$n` for Postgres.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Conn is implemented by *DB and *Tx.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a pool and rebinds every statement for its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.Rebind(query), args...)
}

// BeginTx starts a transaction that rebinds like its parent.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, Dialect: db.Dialect}, nil
}

// Tx is a transaction bound to a dialect.
type Tx struct {
	*sql.Tx
	Dialect Dialect
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.Tx.ExecContext(ctx, tx.Dialect.Rebind(query), args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.Tx.QueryContext(ctx, tx.Dialect.Rebind(query), args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.Tx.QueryRowContext(ctx, tx.Dialect.Rebind(query), args...)
}

// InsertID runs an INSERT and returns the generated id. Postgres has no
// LastInsertId, so the statement gets a RETURNING clause there.
func (d Dialect) InsertID(ctx context.Context, c Conn, query string, args ...any) (uint64, error) {
	if d == Postgres {
		var id uint64
		err := c.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// Params describes how to reach the database server.
type Params struct {
	Driver  string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	SSLMode string
	// MultiStatements lets one Exec carry several statements (MySQL only;
	// Postgres accepts them when no arguments are bound).
	MultiStatements bool
}

// DSN renders the driver specific connection string.
func (p Params) DSN() (Dialect, string, error) {
	d, err := ParseDialect(p.Driver)
	if err != nil {
		return "", "", err
	}
	if d == Postgres {
		u := url.URL{
			Scheme: "postgres",
			Host:   p.Host + ":" + p.Port,
			Path:   "/" + p.Name,
		}
		if p.Pass != "" {
			u.User = url.UserPassword(p.User, p.Pass)
		} else {
			u.User = url.User(p.User)
		}
		mode := p.SSLMode
		if mode == "" {
			mode = "disable"
		}
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
		return d, u.String(), nil
	}

	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Pass
	cfg.Net = "tcp"
	cfg.Addr = p.Host + ":" + p.Port
	cfg.DBName = p.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = p.MultiStatements
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return d, cfg.FormatDSN(), nil
}

// Open connects using p and verifies the connection.
func Open(p Params) (*DB, error) {
	d, dsn, err := p.DSN()
	if err != nil {
		return nil, err
	}
	return OpenDSN(d, dsn)
}

// OpenDSN connects with a ready DSN.
func OpenDSN(d Dialect, dsn string) (*DB, error) {
	driver := "mysql"
	if d == Postgres {
		driver = "postgres"
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, Dialect: d}, nil
}
