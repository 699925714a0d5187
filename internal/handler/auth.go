package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/config"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/utils"
	"github.com/iliyamo/movie-library/internal/validator"
)

// UserStore is the user persistence used by AuthHandler.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	EndSessions(ctx context.Context, id uint64) error
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for the /user endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

var (
	errBadCredentials = apperr.Authentication("Login or password are incorrect.")
	errOldPassword    = apperr.Authentication("Old password is not correct")
)

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

type messageResp struct {
	Message string `json:"message"`
}

// Register handles POST /user/register. Only anonymous callers may
// register; the new account is signed in right away.
func (h *AuthHandler) Register(c echo.Context) error {
	if err := guard(auth.RequireAnonymous(identity(c))); err != nil {
		return fail(c, err)
	}
	var req model.Registration
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Normalize()
	v := validator.New()
	req.Validate(v)
	if err := v.Err(); err != nil {
		return fail(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if taken, err := h.Users.UsernameTaken(ctx, req.Username); err != nil {
		return fail(c, err)
	} else if taken {
		return fail(c, apperr.Conflict("username", "The username value already exists."))
	}
	if taken, err := h.Users.EmailTaken(ctx, req.Email); err != nil {
		return fail(c, err)
	} else if taken {
		return fail(c, apperr.Conflict("email", "The email value already exists."))
	}

	hash, err := utils.HashPassword(req.Password1, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	u := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		return fail(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	resp.Message = "Successfully registered."
	return c.JSON(http.StatusCreated, resp)
}

// Login handles POST /user/login with a username or an email.
func (h *AuthHandler) Login(c echo.Context) error {
	if err := guard(auth.RequireAnonymous(identity(c))); err != nil {
		return fail(c, err)
	}
	var req model.Credentials
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	v := validator.New()
	req.Validate(v)
	if err := v.Err(); err != nil {
		return fail(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, req.UsernameOrEmail)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return fail(c, errBadCredentials)
		}
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, errBadCredentials)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	resp.Message = "Successfully authorized."
	return c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /user/refresh: the presented token is revoked and a
// new pair issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return fail(c, apperr.Invalid("refresh_token", "The refresh_token is missing"))
	}
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout handles POST /user/logout. A refresh_token in the body ends that
// session only; otherwise every session of the signed-in user is revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	who := identity(c)
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	if raw == "" {
		if err := guard(auth.RequireAuthenticated(who)); err != nil {
			return fail(c, err)
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		owner, err := h.Tokens.ValidateRefresh(ctx, hash)
		if err != nil {
			return fail(c, err)
		}
		if who.Authenticated() && owner != who.UserID {
			return fail(c, apperr.Authentication("Invalid refresh token."))
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, err)
		}
	} else if err := h.endSessions(ctx, who.UserID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Successfully logout."})
}

// ChangePassword handles PUT /user/password-change. All sessions are
// revoked afterwards.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	who := identity(c)
	if err := guard(auth.RequireAuthenticated(who)); err != nil {
		return fail(c, err)
	}
	var req model.PasswordChange
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	v := validator.New()
	v.Check(req.OldPassword != "", "old_password", "The old_password is missing")
	req.Validate(v)
	if err := v.Err(); err != nil {
		return fail(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return fail(c, errOldPassword)
	}
	hash, err := utils.HashPassword(req.NewPassword1, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fail(c, err)
	}
	if err := h.endSessions(ctx, u.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Password successfully changed."})
}

// Me handles GET /user/me.
func (h *AuthHandler) Me(c echo.Context) error {
	who := identity(c)
	if err := guard(auth.RequireAuthenticated(who)); err != nil {
		return fail(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// endSessions revokes every refresh token of the user and invalidates the
// access tokens already handed out.
func (h *AuthHandler) endSessions(ctx context.Context, userID uint64) error {
	if err := h.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	return h.Users.EndSessions(ctx, userID)
}

// issue creates an access token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.IsAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
