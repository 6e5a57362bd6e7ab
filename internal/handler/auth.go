package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	queue_publisher "github.com/iliyamo/task-tracker/internal/service"
	"github.com/iliyamo/task-tracker/internal/utils"
	"github.com/iliyamo/task-tracker/internal/validate"
)

// UserStore is the slice of the user repository the auth endpoints
// need. *repository.UserRepo satisfies it; tests supply an in-memory
// implementation.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler bundles dependencies for the register and login endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResp struct {
	AccessToken string           `json:"access_token"`
	User        model.PublicUser `json:"user"`
}

// Register: create the user and return a token immediately. The
// pre-insert lookup gives a clean 409 for the common case; the unique
// index on users.email closes the race between the check and the
// insert, and the repository maps that conflict to the same error.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if errs := validate.Struct(req); errs != nil {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		log.Printf("auth: register attempt with existing email %s", req.Email)
		h.audit("register", "duplicate_email", req.Email, 0)
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u, err := h.Users.Create(ctx, req.Email, hash, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Lost the race to a concurrent register with the same email.
			h.audit("register", "duplicate_email", req.Email, 0)
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	log.Printf("auth: new user registered email=%s id=%d", u.Email, u.ID)
	h.audit("register", "success", u.Email, u.ID)

	return c.JSON(http.StatusCreated, authResp{AccessToken: access.Token, User: u.Public()})
}

// Login: verify credentials and return a fresh token. Unknown email
// and wrong password produce the identical response so the endpoint
// cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if errs := validate.Struct(req); errs != nil {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("auth: login attempt with unknown email %s", req.Email)
			h.audit("login", "invalid_credentials", req.Email, 0)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		log.Printf("auth: login attempt with wrong password email=%s", req.Email)
		h.audit("login", "invalid_credentials", req.Email, 0)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	log.Printf("auth: user authenticated email=%s id=%d", u.Email, u.ID)
	h.audit("login", "success", u.Email, u.ID)

	return c.JSON(http.StatusOK, authResp{AccessToken: access.Token, User: u.Public()})
}

// audit publishes an auth activity event in the background. A broker
// outage never fails the request.
func (h *AuthHandler) audit(action, outcome, email string, userID uint64) {
	ev := queue.AuthActivityEvent{
		Action:  action,
		Outcome: outcome,
		Email:   email,
		UserID:  userID,
		At:      time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishAuthActivity(ctx, ev)
	}()
}
