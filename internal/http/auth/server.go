package authhttp

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/domain/models"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/http/middleware"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/apperr"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/services/auth"
)

// refreshCookie carries the refresh token between calls. It is httpOnly, so
// scripts on the client never see it.
const refreshCookie = "refreshToken"

type Auth interface {
	Signup(ctx context.Context, email string, password string) (auth.Result, error)
	Login(ctx context.Context, email string, password string) (auth.Result, error)
	Activate(ctx context.Context, activationLink string) error
	Refresh(ctx context.Context, refreshToken string) (auth.Result, error)
	Logout(ctx context.Context, refreshToken string) error
	Accounts(ctx context.Context) ([]models.TokenPayload, error)
}

type serverAPI struct {
	auth       Auth
	validate   *validator.Validate
	refreshTTL time.Duration
	clientURL  string
}

// Register mounts the auth routes on the app.
func Register(app *fiber.App, authService Auth, verifier middleware.AccessVerifier, refreshTTL time.Duration, clientURL string) {
	s := &serverAPI{
		auth:       authService,
		validate:   validator.New(),
		refreshTTL: refreshTTL,
		clientURL:  clientURL,
	}

	api := app.Group("/api")

	api.Post("/signup", s.signup)
	api.Post("/login", s.login)
	api.Post("/logout", s.logout)
	api.Get("/activate/:link", s.activate)
	api.Get("/refresh", s.refresh)
	api.Get("/users", middleware.Auth(verifier), s.users)
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=32"`
}

func (s *serverAPI) signup(c *fiber.Ctx) error {
	req, err := s.parseCredentials(c)
	if err != nil {
		return err
	}

	result, err := s.auth.Signup(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	s.setRefreshCookie(c, result.Tokens.RefreshToken)

	return c.JSON(result)
}

func (s *serverAPI) login(c *fiber.Ctx) error {
	req, err := s.parseCredentials(c)
	if err != nil {
		return err
	}

	result, err := s.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	s.setRefreshCookie(c, result.Tokens.RefreshToken)

	return c.JSON(result)
}

func (s *serverAPI) logout(c *fiber.Ctx) error {
	if err := s.auth.Logout(c.UserContext(), c.Cookies(refreshCookie)); err != nil {
		return err
	}

	s.clearRefreshCookie(c)

	return c.JSON(fiber.Map{"message": "logged out"})
}

// activate consumes the emailed link and sends the browser on to the client
// application.
func (s *serverAPI) activate(c *fiber.Ctx) error {
	link := c.Params("link")
	if link == "" {
		return apperr.BadRequest("invalid activation link")
	}

	if err := s.auth.Activate(c.UserContext(), link); err != nil {
		return err
	}

	return c.Redirect(s.clientURL, fiber.StatusFound)
}

func (s *serverAPI) refresh(c *fiber.Ctx) error {
	result, err := s.auth.Refresh(c.UserContext(), c.Cookies(refreshCookie))
	if err != nil {
		return err
	}

	s.setRefreshCookie(c, result.Tokens.RefreshToken)

	return c.JSON(result)
}

func (s *serverAPI) users(c *fiber.Ctx) error {
	views, err := s.auth.Accounts(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(views)
}

func (s *serverAPI) parseCredentials(c *fiber.Ctx) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return credentialsRequest{}, apperr.BadRequest("invalid request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return credentialsRequest{}, apperr.BadRequest("email must be valid and password must be 4-32 characters")
	}

	return req, nil
}

func (s *serverAPI) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.refreshTTL.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *serverAPI) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ErrorHandler maps the service error taxonomy to HTTP status codes. It is
// installed once on the fiber app; handlers just return errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
	}

	var status int
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		status = fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		status = fiber.StatusUnauthorized
	case apperr.KindConflict:
		status = fiber.StatusConflict
	default:
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{"message": apperr.MessageOf(err)})
}
