package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/domain/models"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/apperr"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/logger/sl"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/passhash"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/storage"
)

// msgInvalidCredentials is returned for both unknown email and wrong
// password. The two cases are told apart only in logs, so the response
// cannot be used to enumerate registered addresses.
const msgInvalidCredentials = "invalid email or password"

type Auth struct {
	log             *slog.Logger
	accountSaver    AccountSaver
	accountProvider AccountProvider
	sessionSaver    SessionSaver
	sessionProvider SessionProvider
	sessionRemover  SessionRemover
	tokens          TokenIssuer
	mailer          ActivationMailer
}

// Result is the success payload of signup, login and refresh: a fresh token
// pair plus the public account view the pair was minted from.
type Result struct {
	Tokens  models.TokenPair    `json:"tokens"`
	Account models.TokenPayload `json:"account"`
}

// Signup registers a new account, dispatches its activation mail and logs
// the account in.
func (a *Auth) Signup(ctx context.Context, email string, password string) (Result, error) {
	const op = "Auth.Signup"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering account")

	_, err := a.accountProvider.AccountByEmail(ctx, email)
	if err == nil {
		log.Warn("email already registered")
		return Result{}, apperr.BadRequest("account with this email already exists")
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		log.Error("failed to check email", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	passHash, err := passhash.Hash(password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	activationLink := uuid.New().String()

	id, err := a.accountSaver.SaveAccount(ctx, email, passHash, activationLink)
	if err != nil {
		// The pre-check and the insert race under concurrent signups; the
		// schema constraint is the final authority and a lost race reads
		// the same as a failed pre-check.
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("email already registered", sl.Err(err))
			return Result{}, apperr.BadRequest("account with this email already exists")
		}

		log.Error("failed to save account", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	account, err := a.accountProvider.AccountByID(ctx, id)
	if err != nil {
		log.Error("failed to load created account", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	// Mail dispatch is fire-and-forget: a provider outage must not fail the
	// signup, the link stays resolvable for a later resend.
	if mailErr := a.mailer.SendActivationMail(ctx, email, activationLink); mailErr != nil {
		log.Error("failed to send activation mail", sl.Err(mailErr))
	}

	log.Info("account registered", slog.Int64("account_id", id))

	return a.issueSession(ctx, log, account.Payload())
}

// Login verifies credentials and starts a session, replacing any previous
// one for the account.
func (a *Auth) Login(ctx context.Context, email string, password string) (Result, error) {
	const op = "Auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login")

	account, err := a.accountProvider.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account not found", sl.Err(err))
			return Result{}, apperr.BadRequest(msgInvalidCredentials)
		}

		log.Error("failed to get account", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if !passhash.Verify(password, account.PassHash) {
		log.Info("invalid password")
		return Result{}, apperr.BadRequest(msgInvalidCredentials)
	}

	log.Info("logged in", slog.Int64("account_id", account.ID))

	return a.issueSession(ctx, log, account.Payload())
}

// Activate flips the account behind the link to activated. The transition
// is one-way: activating an already activated account is a no-op.
func (a *Auth) Activate(ctx context.Context, activationLink string) error {
	const op = "Auth.Activate"

	log := a.log.With(slog.String("op", op))

	log.Info("activating account")

	account, err := a.accountProvider.AccountByActivationLink(ctx, activationLink)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("activation link not found")
			return apperr.BadRequest("invalid activation link")
		}

		log.Error("failed to resolve activation link", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if account.IsActivated {
		log.Info("account already activated", slog.Int64("account_id", account.ID))
		return nil
	}

	if err := a.accountSaver.MarkActivated(ctx, account.ID); err != nil {
		log.Error("failed to mark account activated", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("account activated", slog.Int64("account_id", account.ID))

	return nil
}

// Refresh rotates the session: it accepts the currently live refresh token
// and replaces it with a fresh pair minted from the account's current state.
// A missing, forged, expired or revoked token uniformly fails unauthorized.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (Result, error) {
	const op = "Auth.Refresh"

	log := a.log.With(slog.String("op", op))

	log.Info("refreshing session")

	if refreshToken == "" {
		log.Warn("refresh token missing")
		return Result{}, apperr.Unauthorized("not authorized")
	}

	payload, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		log.Warn("refresh token failed verification", sl.Err(err))
		return Result{}, apperr.Unauthorized("not authorized")
	}

	accountID, err := a.sessionProvider.AccountIDByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			log.Warn("refresh token revoked or superseded")
			return Result{}, apperr.Unauthorized("not authorized")
		}

		log.Error("failed to look up session", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if accountID != payload.ID {
		log.Warn("session record does not match token payload",
			slog.Int64("session_account_id", accountID),
			slog.Int64("token_account_id", payload.ID),
		)
		return Result{}, apperr.Unauthorized("not authorized")
	}

	// Reload the account so the new pair reflects its current state, e.g.
	// an activation that happened after the presented token was minted.
	account, err := a.accountProvider.AccountByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account behind session no longer exists")
			return Result{}, apperr.Unauthorized("not authorized")
		}

		log.Error("failed to get account", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("session refreshed", slog.Int64("account_id", account.ID))

	return a.issueSession(ctx, log, account.Payload())
}

// Logout revokes the session holding the token. Unknown tokens are ignored,
// so repeated logouts are safe.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "Auth.Logout"

	log := a.log.With(slog.String("op", op))

	log.Info("logging out")

	if refreshToken == "" {
		return nil
	}

	removed, err := a.sessionRemover.RemoveSession(ctx, refreshToken)
	if err != nil {
		log.Error("failed to remove session", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("logged out", slog.Int64("sessions_removed", removed))

	return nil
}

// Accounts lists the public views of all registered accounts.
func (a *Auth) Accounts(ctx context.Context) ([]models.TokenPayload, error) {
	const op = "Auth.Accounts"

	log := a.log.With(slog.String("op", op))

	accounts, err := a.accountProvider.Accounts(ctx)
	if err != nil {
		log.Error("failed to list accounts", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	views := make([]models.TokenPayload, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, account.Payload())
	}

	return views, nil
}

// issueSession mints a pair for the payload and persists the refresh half,
// superseding any previous session for the account.
func (a *Auth) issueSession(ctx context.Context, log *slog.Logger, payload models.TokenPayload) (Result, error) {
	const op = "Auth.issueSession"

	pair, err := a.tokens.IssuePair(payload)
	if err != nil {
		log.Error("failed to issue token pair", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := a.sessionSaver.SaveSession(ctx, payload.ID, pair.RefreshToken); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return Result{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return Result{Tokens: pair, Account: payload}, nil
}

type AccountSaver interface {
	SaveAccount(ctx context.Context, email string, passHash []byte, activationLink string) (int64, error)
	MarkActivated(ctx context.Context, accountID int64) error
}

type AccountProvider interface {
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	AccountByID(ctx context.Context, accountID int64) (models.Account, error)
	AccountByActivationLink(ctx context.Context, link string) (models.Account, error)
	Accounts(ctx context.Context) ([]models.Account, error)
}

type SessionSaver interface {
	SaveSession(ctx context.Context, accountID int64, refreshToken string) error
}

type SessionProvider interface {
	AccountIDByRefreshToken(ctx context.Context, refreshToken string) (int64, error)
}

type SessionRemover interface {
	RemoveSession(ctx context.Context, refreshToken string) (removed int64, err error)
}

type TokenIssuer interface {
	IssuePair(payload models.TokenPayload) (models.TokenPair, error)
	VerifyRefresh(token string) (models.TokenPayload, error)
}

type ActivationMailer interface {
	SendActivationMail(ctx context.Context, email string, activationLink string) error
}

func New(
	log *slog.Logger,
	accountSaver AccountSaver,
	accountProvider AccountProvider,
	sessionSaver SessionSaver,
	sessionProvider SessionProvider,
	sessionRemover SessionRemover,
	tokens TokenIssuer,
	mailer ActivationMailer,
) *Auth {
	return &Auth{
		log:             log,
		accountSaver:    accountSaver,
		accountProvider: accountProvider,
		sessionSaver:    sessionSaver,
		sessionProvider: sessionProvider,
		sessionRemover:  sessionRemover,
		tokens:          tokens,
		mailer:          mailer,
	}
}
