package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tripfolio/tripfolio/internal/account"
	"github.com/tripfolio/tripfolio/internal/storage"
)

const selectAccountColumns = `id, email, user_handle, display_name, is_admin, created_at, updated_at`

// CreateAccountWithCredential inserts the account, claims the first-admin
// marker, and stores the account's first credential in one transaction.
//
// The marker table has a fixed primary key, so of any number of concurrent
// registrations exactly one insert can succeed; that registration's account
// becomes the administrator. The decision is made once, here, and never
// re-evaluated.
func (s *Store) CreateAccountWithCredential(ctx context.Context, a account.Account, credential storage.Credential) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return account.Account{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(a.ID) == "" {
		return account.Account{}, fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(a.Email) == "" {
		return account.Account{}, fmt.Errorf("account email is required")
	}
	if strings.TrimSpace(a.Handle) == "" {
		return account.Account{}, fmt.Errorf("account user handle is required")
	}
	if strings.TrimSpace(credential.CredentialID) == "" {
		return account.Account{}, fmt.Errorf("credential id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, fmt.Errorf("begin account transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO accounts (id, email, user_handle, display_name, is_admin, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
`, a.ID, a.Email, a.Handle, a.DisplayName, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err, "accounts.email") {
			return account.Account{}, storage.ErrDuplicateAccount
		}
		return account.Account{}, fmt.Errorf("insert account: %w", err)
	}

	claim, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO admin_bootstrap (id, account_id, claimed_at) VALUES (1, ?, ?)
`, a.ID, toMillis(a.CreatedAt))
	if err != nil {
		return account.Account{}, fmt.Errorf("claim admin bootstrap: %w", err)
	}
	claimed, err := claim.RowsAffected()
	if err != nil {
		return account.Account{}, fmt.Errorf("claim admin bootstrap: %w", err)
	}
	a.IsAdmin = claimed == 1
	if a.IsAdmin {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_admin = 1 WHERE id = ?`, a.ID); err != nil {
			return account.Account{}, fmt.Errorf("promote first account: %w", err)
		}
	}

	lastUsed := sql.NullInt64{}
	if credential.LastUsedAt != nil {
		lastUsed = sql.NullInt64{Int64: toMillis(*credential.LastUsedAt), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO credentials (credential_id, account_id, credential_json, sign_count, transports, created_at, updated_at, last_used_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, credential.CredentialID, a.ID, credential.CredentialJSON, credential.SignCount, credential.Transports,
		toMillis(credential.CreatedAt), toMillis(credential.UpdatedAt), lastUsed)
	if err != nil {
		if isUniqueViolation(err, "credentials.credential_id") {
			return account.Account{}, storage.ErrDuplicateCredential
		}
		return account.Account{}, fmt.Errorf("insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return account.Account{}, fmt.Errorf("commit account transaction: %w", err)
	}
	return a, nil
}

// GetAccount fetches an account by id.
func (s *Store) GetAccount(ctx context.Context, accountID string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return account.Account{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(accountID) == "" {
		return account.Account{}, fmt.Errorf("account id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectAccountColumns+` FROM accounts WHERE id = ?`, accountID)
	return scanAccount(row)
}

// GetAccountByEmail fetches an account by normalized email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return account.Account{}, fmt.Errorf("storage is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return account.Account{}, fmt.Errorf("email is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectAccountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (account.Account, error) {
	var scanned account.Account
	var isAdmin int64
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(&scanned.ID, &scanned.Email, &scanned.Handle, &scanned.DisplayName, &isAdmin, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, storage.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("scan account: %w", err)
	}
	scanned.IsAdmin = isAdmin == 1
	scanned.CreatedAt = fromMillis(createdAt)
	scanned.UpdatedAt = fromMillis(updatedAt)
	return scanned, nil
}
