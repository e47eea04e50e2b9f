package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mathew-Seliverstov/projectAuthServer/config"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/app/httpapp"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/jwt"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/mail"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/services/auth"
	redisstore "github.com/Mathew-Seliverstov/projectAuthServer/internal/storage/redis"
)

type App struct {
	HTTPServer *httpapp.App
	StorageApp *StorageApp

	redisStore *redisstore.SessionStore
}

// New wires the whole service together: storage, token issuer, mail
// notifier, session store backend and the HTTP server.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	storageApp, err := NewStorageApp(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	issuer := jwt.NewIssuer(
		cfg.Token.AccessSecret,
		cfg.Token.RefreshSecret,
		cfg.Token.AccessTTL,
		cfg.Token.RefreshTTL,
	)

	var mailer auth.ActivationMailer
	if cfg.Mail.ResendAPIKey != "" {
		mailer, err = mail.NewResend(log, mail.Config{
			APIKey:    cfg.Mail.ResendAPIKey,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.FromEmail,
			APIURL:    cfg.Mail.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		mailer = mail.NewNoop(log)
	}

	// The session store is swappable: sqlite shares the account database by
	// default, redis holds sessions out of process when configured.
	var (
		sessionSaver    auth.SessionSaver    = storageApp.Storage()
		sessionProvider auth.SessionProvider = storageApp.Storage()
		sessionRemover  auth.SessionRemover  = storageApp.Storage()
		redisStore      *redisstore.SessionStore
	)
	if cfg.SessionStore == "redis" {
		redisStore, err = redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Token.RefreshTTL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sessionSaver = redisStore
		sessionProvider = redisStore
		sessionRemover = redisStore
	}

	authService := auth.New(
		log,
		storageApp.Storage(),
		storageApp.Storage(),
		sessionSaver,
		sessionProvider,
		sessionRemover,
		issuer,
		mailer,
	)

	httpApp := httpapp.New(
		log,
		authService,
		issuer,
		cfg.HTTP.Port,
		cfg.HTTP.Timeout,
		cfg.Token.RefreshTTL,
		cfg.ClientURL,
	)

	return &App{
		HTTPServer: httpApp,
		StorageApp: storageApp,
		redisStore: redisStore,
	}, nil
}

// Stop releases storage resources. The HTTP server is stopped separately by
// the entrypoint so requests can drain first.
func (a *App) Stop() error {
	if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			return err
		}
	}

	return a.StorageApp.Stop()
}
