// Command movielib holds the administrative tasks of the movie library:
// creating an admin account, rebuilding the schema and loading seed data.
package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/iliyamo/movie-library/internal/config"
	"github.com/iliyamo/movie-library/internal/database"
)

type cli struct {
	Createsuperuser createSuperuserCmd `cmd:"" help:"Create an administrator account."`
	CreateTables    createTablesCmd    `cmd:"" help:"Drop every table and create the schema again."`
	InsertData      insertDataCmd      `cmd:"" help:"Execute the .sql files of a directory in name order, in one transaction."`
}

// env is bound into every command's Run.
type env struct {
	cfg config.Config
	in  io.Reader
	out io.Writer
}

func (e *env) open() (*database.DB, error) {
	p := e.cfg.Database()
	p.MultiStatements = true
	return database.Open(p)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Minute)
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("movielib"),
		kong.Description("Movie library administration."),
		kong.UsageOnError(),
	)
	e := &env{cfg: config.LoadDatabase(), in: os.Stdin, out: os.Stdout}
	kctx.FatalIfErrorf(kctx.Run(e))
}
