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

// CreateInvite stores an invite and its fixed trip set in one transaction.
func (s *Store) CreateInvite(ctx context.Context, invite storage.Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(invite.Code) == "" {
		return fmt.Errorf("invite code is required")
	}
	if strings.TrimSpace(invite.CreatedBy) == "" {
		return fmt.Errorf("invite creator is required")
	}
	if strings.TrimSpace(invite.Role) == "" {
		return fmt.Errorf("invite role is required")
	}
	if len(invite.TripIDs) == 0 {
		return fmt.Errorf("invite trip set is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invite transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO invites (code, created_by, role, email, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, invite.Code, invite.CreatedBy, invite.Role, invite.Email, toMillis(invite.ExpiresAt), toMillis(invite.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}

	for _, tripID := range invite.TripIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO invite_trips (code, trip_id) VALUES (?, ?)`, invite.Code, tripID); err != nil {
			return fmt.Errorf("insert invite trip: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invite transaction: %w", err)
	}
	return nil
}

// GetInvite fetches an invite and its trip set by code.
func (s *Store) GetInvite(ctx context.Context, code string) (storage.Invite, error) {
	if err := ctx.Err(); err != nil {
		return storage.Invite{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Invite{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return storage.Invite{}, storage.ErrNotFound
	}

	invite, err := getInvite(ctx, s.sqlDB, code)
	if err != nil {
		return storage.Invite{}, err
	}
	invite.TripIDs, err = listInviteTrips(ctx, s.sqlDB, code)
	if err != nil {
		return storage.Invite{}, err
	}
	return invite, nil
}

// RedeemInvite performs the whole redemption atomically: the conditional
// unredeemed-to-redeemed transition and one grant upsert per associated trip.
// The transition is guarded by redeemed_by IS NULL, so concurrent redeemers of
// the same code race on that update: exactly one wins, the rest fail
// ErrInviteAlreadyUsed. Any later failure rolls the transition back.
func (s *Store) RedeemInvite(ctx context.Context, code string, accountID string, now time.Time) ([]storage.TripGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, storage.ErrNotFound
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin redemption transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	invite, err := getInvite(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if invite.RedeemedBy != "" {
		return nil, storage.ErrInviteAlreadyUsed
	}
	if !invite.ExpiresAt.After(now) {
		return nil, storage.ErrInviteExpired
	}

	result, err := tx.ExecContext(ctx, `
UPDATE invites SET redeemed_by = ?, redeemed_at = ? WHERE code = ? AND redeemed_by IS NULL
`, accountID, toMillis(now), code)
	if err != nil {
		return nil, fmt.Errorf("redeem invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("redeem invite: %w", err)
	}
	if affected != 1 {
		return nil, storage.ErrInviteAlreadyUsed
	}

	tripIDs, err := listInviteTrips(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	grants := make([]storage.TripGrant, 0, len(tripIDs))
	for _, tripID := range tripIDs {
		grant := storage.TripGrant{
			AccountID: accountID,
			TripID:    tripID,
			Role:      invite.Role,
			GrantedBy: invite.CreatedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := upsertTripGrant(ctx, tx, grant); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption transaction: %w", err)
	}
	return grants, nil
}

// querier covers *sql.DB and *sql.Tx for invite reads.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getInvite(ctx context.Context, db querier, code string) (storage.Invite, error) {
	row := db.QueryRowContext(ctx, `
SELECT code, created_by, role, email, expires_at, created_at, redeemed_by, redeemed_at
FROM invites WHERE code = ?
`, code)

	var invite storage.Invite
	var expiresAt int64
	var createdAt int64
	var redeemedBy sql.NullString
	var redeemedAt sql.NullInt64
	if err := row.Scan(&invite.Code, &invite.CreatedBy, &invite.Role, &invite.Email,
		&expiresAt, &createdAt, &redeemedBy, &redeemedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Invite{}, storage.ErrNotFound
		}
		return storage.Invite{}, fmt.Errorf("get invite: %w", err)
	}
	invite.ExpiresAt = fromMillis(expiresAt)
	invite.CreatedAt = fromMillis(createdAt)
	if redeemedBy.Valid {
		invite.RedeemedBy = redeemedBy.String
	}
	if redeemedAt.Valid {
		value := fromMillis(redeemedAt.Int64)
		invite.RedeemedAt = &value
	}
	return invite, nil
}

func listInviteTrips(ctx context.Context, db querier, code string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT trip_id FROM invite_trips WHERE code = ? ORDER BY trip_id`, code)
	if err != nil {
		return nil, fmt.Errorf("list invite trips: %w", err)
	}
	defer rows.Close()

	var tripIDs []string
	for rows.Next() {
		var tripID string
		if err := rows.Scan(&tripID); err != nil {
			return nil, fmt.Errorf("scan invite trip: %w", err)
		}
		tripIDs = append(tripIDs, tripID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invite trips: %w", err)
	}
	return tripIDs, nil
}
