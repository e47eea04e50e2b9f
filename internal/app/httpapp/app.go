package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	authhttp "github.com/Mathew-Seliverstov/projectAuthServer/internal/http/auth"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/http/middleware"
)

type App struct {
	log      *slog.Logger
	fiberApp *fiber.App
	port     int
}

// New creates the HTTP server app: fiber with panic recovery, request
// logging and the auth routes mounted.
func New(
	log *slog.Logger,
	authService authhttp.Auth,
	verifier middleware.AccessVerifier,
	port int,
	timeout time.Duration,
	refreshTTL time.Duration,
	clientURL string,
) *App {
	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		DisableStartupMessage: true,
		ErrorHandler:          authhttp.ErrorHandler,
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(requestLogger(log))

	authhttp.Register(fiberApp, authService, verifier, refreshTTL, clientURL)

	return &App{
		log:      log,
		fiberApp: fiberApp,
		port:     port,
	}
}

func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.Info("request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		)

		return err
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.Info("http server started", slog.Int("port", a.port))

	if err := a.fiberApp.Listen(fmt.Sprintf(":%d", a.port)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the
// context deadline.
func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping http server", slog.Int("port", a.port))

	if err := a.fiberApp.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
