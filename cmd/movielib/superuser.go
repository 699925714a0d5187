package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/repository"
	"github.com/iliyamo/movie-library/internal/utils"
	"github.com/iliyamo/movie-library/internal/validator"
)

type createSuperuserCmd struct {
	Username string `help:"Login name; prompted when empty."`
	Email    string `help:"Email address; prompted when empty."`
	Password string `help:"Password; prompted without echo when empty." env:"MOVIELIB_SUPERUSER_PASSWORD"`
}

func (c *createSuperuserCmd) Run(e *env) error {
	r := bufio.NewReader(e.in)
	reg := model.Registration{Username: c.Username, Email: c.Email, Password1: c.Password, Password2: c.Password}

	var err error
	if reg.Username == "" {
		if reg.Username, err = prompt(r, e, "Username: "); err != nil {
			return err
		}
	}
	if reg.Email == "" {
		if reg.Email, err = prompt(r, e, "Email: "); err != nil {
			return err
		}
	}
	if c.Password == "" {
		if reg.Password1, err = promptSecret(r, e, "Password: "); err != nil {
			return err
		}
		if reg.Password2, err = promptSecret(r, e, "Password (again): "); err != nil {
			return err
		}
	}

	reg.Normalize()
	v := validator.New()
	reg.Validate(v)
	if err := v.Err(); err != nil {
		return err
	}

	db, err := e.open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	users := repository.NewUserRepo(db)

	ctx, cancel := commandContext()
	defer cancel()

	if err := checkFree(ctx, users, reg); err != nil {
		return err
	}
	hash, err := utils.HashPassword(reg.Password1, e.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u := &model.User{Username: reg.Username, Email: reg.Email, PasswordHash: hash, IsAdmin: true}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Superuser %s created (id %d).\n", u.Username, u.ID)
	return nil
}

func checkFree(ctx context.Context, users *repository.UserRepo, reg model.Registration) error {
	taken, err := users.UsernameTaken(ctx, reg.Username)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("username", "The username value already exists.")
	}
	if taken, err = users.EmailTaken(ctx, reg.Email); err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("email", "The email value already exists.")
	}
	return nil
}

func prompt(r *bufio.Reader, e *env, label string) (string, error) {
	fmt.Fprint(e.out, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal and falls back
// to a plain line read otherwise, so the command can be scripted.
func promptSecret(r *bufio.Reader, e *env, label string) (string, error) {
	if f, ok := e.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return prompt(r, e, label)
}
