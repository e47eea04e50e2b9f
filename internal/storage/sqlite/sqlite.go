// Migrations init script: go run ./cmd/migrator --storage-path=./storage/auth.db --migrations-path=./migrations
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/domain/models"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/storage"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveAccount inserts a new account. Email and activation link uniqueness is
// enforced by the schema, so a lost pre-check race still surfaces as
// storage.ErrAccountExists.
func (s *Storage) SaveAccount(ctx context.Context, email string, passHash []byte, activationLink string) (int64, error) {
	const op = "storage.sqlite.SaveAccount"

	stmt, err := s.db.Prepare(`
		INSERT INTO accounts (email, pass_hash, activation_link)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, email, passHash, activationLink)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAccountExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.account(ctx, "email = ?", email)
}

func (s *Storage) AccountByID(ctx context.Context, accountID int64) (models.Account, error) {
	return s.account(ctx, "id = ?", accountID)
}

func (s *Storage) AccountByActivationLink(ctx context.Context, link string) (models.Account, error) {
	return s.account(ctx, "activation_link = ?", link)
}

func (s *Storage) account(ctx context.Context, where string, arg any) (models.Account, error) {
	const op = "storage.sqlite.Account"

	stmt, err := s.db.Prepare(`
		SELECT id, email, pass_hash, is_activated, activation_link, created_at, updated_at
		FROM accounts WHERE ` + where)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var account models.Account
	err = stmt.QueryRowContext(ctx, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PassHash,
		&account.IsActivated,
		&account.ActivationLink,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
		}
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// MarkActivated flips is_activated to true. The update is idempotent and
// never reverts the flag.
func (s *Storage) MarkActivated(ctx context.Context, accountID int64) error {
	const op = "storage.sqlite.MarkActivated"

	stmt, err := s.db.Prepare("UPDATE accounts SET is_activated = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
	}

	return nil
}

func (s *Storage) Accounts(ctx context.Context) ([]models.Account, error) {
	const op = "storage.sqlite.Accounts"

	stmt, err := s.db.Prepare(`
		SELECT id, email, pass_hash, is_activated, activation_link, created_at, updated_at
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.PassHash,
			&account.IsActivated,
			&account.ActivationLink,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return accounts, nil
}

// SaveSession upserts the single session record for the account. A new
// login or refresh overwrites the previous refresh token, which makes the
// old one unusable even though its signature still verifies.
func (s *Storage) SaveSession(ctx context.Context, accountID int64, refreshToken string) error {
	const op = "storage.sqlite.SaveSession"

	stmt, err := s.db.Prepare(`
		INSERT INTO sessions (account_id, refresh_token)
		VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			refresh_token = excluded.refresh_token,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, accountID, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AccountIDByRefreshToken is the reverse lookup confirming a presented
// refresh token is the currently live one.
func (s *Storage) AccountIDByRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	const op = "storage.sqlite.AccountIDByRefreshToken"

	stmt, err := s.db.Prepare("SELECT account_id FROM sessions WHERE refresh_token = ?")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var accountID int64
	err = stmt.QueryRowContext(ctx, refreshToken).Scan(&accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return accountID, nil
}

// RemoveSession deletes the record holding the token. Removing an unknown
// token is not an error; the count tells the caller whether anything was
// revoked.
func (s *Storage) RemoveSession(ctx context.Context, refreshToken string) (int64, error) {
	const op = "storage.sqlite.RemoveSession"

	stmt, err := s.db.Prepare("DELETE FROM sessions WHERE refresh_token = ?")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, refreshToken)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return removed, nil
}
