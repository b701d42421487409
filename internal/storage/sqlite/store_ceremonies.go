package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tripfolio/tripfolio/internal/storage"
)

// PutCeremony stores a pending WebAuthn ceremony, replacing any previous
// ceremony with the same id.
func (s *Store) PutCeremony(ctx context.Context, ceremony storage.Ceremony) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(ceremony.ID) == "" {
		return fmt.Errorf("ceremony id is required")
	}
	if strings.TrimSpace(ceremony.Kind) == "" {
		return fmt.Errorf("ceremony kind is required")
	}
	if strings.TrimSpace(ceremony.SessionJSON) == "" {
		return fmt.Errorf("ceremony session json is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO ceremonies (id, kind, account_id, pending_email, pending_handle, pending_display_name, session_json, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, ceremony.ID, ceremony.Kind, ceremony.AccountID, ceremony.PendingEmail, ceremony.PendingHandle,
		ceremony.PendingDisplayName, ceremony.SessionJSON, toMillis(ceremony.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert ceremony: %w", err)
	}
	return nil
}

// ConsumeCeremony removes and returns the ceremony in a single statement, so
// concurrent consumers of the same id race on the delete: one gets the row
// back, the rest get ErrNotFound.
func (s *Store) ConsumeCeremony(ctx context.Context, id string) (storage.Ceremony, error) {
	if err := ctx.Err(); err != nil {
		return storage.Ceremony{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Ceremony{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.Ceremony{}, fmt.Errorf("ceremony id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
DELETE FROM ceremonies WHERE id = ?
RETURNING id, kind, account_id, pending_email, pending_handle, pending_display_name, session_json, expires_at
`, id)

	var ceremony storage.Ceremony
	var expiresAt int64
	if err := row.Scan(
		&ceremony.ID,
		&ceremony.Kind,
		&ceremony.AccountID,
		&ceremony.PendingEmail,
		&ceremony.PendingHandle,
		&ceremony.PendingDisplayName,
		&ceremony.SessionJSON,
		&expiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Ceremony{}, storage.ErrNotFound
		}
		return storage.Ceremony{}, fmt.Errorf("consume ceremony: %w", err)
	}
	ceremony.ExpiresAt = fromMillis(expiresAt)
	return ceremony, nil
}

// DeleteExpiredCeremonies removes ceremonies whose expiry has passed.
func (s *Store) DeleteExpiredCeremonies(ctx context.Context, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ceremonies WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("delete expired ceremonies: %w", err)
	}
	return nil
}
