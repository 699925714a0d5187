package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iliyamo/movie-library/internal/database"
)

type createTablesCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *createTablesCmd) Run(e *env) error {
	if !c.Yes {
		ok, err := confirm(e.in, e.out, "All tables will be dropped and created again. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.out, "Aborted.")
			return nil
		}
	}
	db, err := e.open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if err := database.ResetTables(ctx, db); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Tables created.")
	return nil
}

// confirm asks a [yn] question until it gets an answer. EOF counts as no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	r := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s [yn] ", question)
		line, err := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

type insertDataCmd struct {
	Dir string `help:"Directory with .sql files." placeholder:"DIR"`
}

func (c *insertDataCmd) Run(e *env) (err error) {
	dir := c.Dir
	if dir == "" {
		dir = e.cfg.InsertDataDir
	}
	files, err := sqlFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .sql files in %s", dir)
	}

	db, err := e.open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := commandContext()
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
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

	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		// seed files are executed verbatim, without placeholder rebinding
		if _, err := tx.Tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		fmt.Fprintf(e.out, "Executed %s\n", filepath.Base(f))
	}
	return nil
}

// sqlFiles lists the .sql files directly inside dir, sorted by name.
func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(files)
	return files, nil
}
