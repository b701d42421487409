package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tripfolio/tripfolio/internal/storage"
)

const selectTripColumns = `id, slug, title, created_by, created_at`

// PutTrip inserts a trip or updates its title. Slug and provenance are fixed
// at creation.
func (s *Store) PutTrip(ctx context.Context, trip storage.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(trip.ID) == "" {
		return fmt.Errorf("trip id is required")
	}
	if strings.TrimSpace(trip.Slug) == "" {
		return fmt.Errorf("trip slug is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO trips (id, slug, title, created_by, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET title = excluded.title
`, trip.ID, trip.Slug, trip.Title, trip.CreatedBy, toMillis(trip.CreatedAt))
	if err != nil {
		return fmt.Errorf("put trip: %w", err)
	}
	return nil
}

// GetTrip fetches a trip by id.
func (s *Store) GetTrip(ctx context.Context, tripID string) (storage.Trip, error) {
	if err := ctx.Err(); err != nil {
		return storage.Trip{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Trip{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tripID) == "" {
		return storage.Trip{}, fmt.Errorf("trip id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectTripColumns+` FROM trips WHERE id = ?`, tripID)
	return scanTrip(row)
}

// GetTripBySlug fetches a trip by its unique slug.
func (s *Store) GetTripBySlug(ctx context.Context, slug string) (storage.Trip, error) {
	if err := ctx.Err(); err != nil {
		return storage.Trip{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Trip{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(slug) == "" {
		return storage.Trip{}, fmt.Errorf("trip slug is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectTripColumns+` FROM trips WHERE slug = ?`, slug)
	return scanTrip(row)
}

func scanTrip(row *sql.Row) (storage.Trip, error) {
	var trip storage.Trip
	var createdAt int64
	if err := row.Scan(&trip.ID, &trip.Slug, &trip.Title, &trip.CreatedBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Trip{}, storage.ErrNotFound
		}
		return storage.Trip{}, fmt.Errorf("scan trip: %w", err)
	}
	trip.CreatedAt = fromMillis(createdAt)
	return trip, nil
}

// UpsertTripGrant inserts a grant or upgrades an existing one. A grant never
// downgrades: an existing editor grant survives a viewer upsert untouched.
func (s *Store) UpsertTripGrant(ctx context.Context, grant storage.TripGrant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := upsertTripGrant(ctx, s.sqlDB, grant); err != nil {
		return err
	}
	return nil
}

// execer covers *sql.DB and *sql.Tx so grant upserts can run inside invite
// redemption transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTripGrant(ctx context.Context, db execer, grant storage.TripGrant) error {
	if strings.TrimSpace(grant.AccountID) == "" {
		return fmt.Errorf("grant account id is required")
	}
	if strings.TrimSpace(grant.TripID) == "" {
		return fmt.Errorf("grant trip id is required")
	}
	if strings.TrimSpace(grant.Role) == "" {
		return fmt.Errorf("grant role is required")
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO trip_grants (account_id, trip_id, role, granted_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, trip_id) DO UPDATE SET
    role = CASE WHEN excluded.role = 'EDITOR' THEN 'EDITOR' ELSE trip_grants.role END,
    granted_by = CASE WHEN excluded.role = 'EDITOR' AND trip_grants.role <> 'EDITOR' THEN excluded.granted_by ELSE trip_grants.granted_by END,
    updated_at = CASE WHEN excluded.role = 'EDITOR' AND trip_grants.role <> 'EDITOR' THEN excluded.updated_at ELSE trip_grants.updated_at END
`, grant.AccountID, grant.TripID, grant.Role, grant.GrantedBy, toMillis(grant.CreatedAt), toMillis(grant.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert trip grant: %w", err)
	}
	return nil
}

const selectGrantColumns = `account_id, trip_id, role, granted_by, created_at, updated_at`

// GetTripGrant fetches the grant binding an account to a trip.
func (s *Store) GetTripGrant(ctx context.Context, accountID string, tripID string) (storage.TripGrant, error) {
	if err := ctx.Err(); err != nil {
		return storage.TripGrant{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TripGrant{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(tripID) == "" {
		return storage.TripGrant{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+selectGrantColumns+` FROM trip_grants WHERE account_id = ? AND trip_id = ?`,
		accountID, tripID)
	grant, err := scanGrant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TripGrant{}, storage.ErrNotFound
		}
		return storage.TripGrant{}, fmt.Errorf("get trip grant: %w", err)
	}
	return grant, nil
}

// ListTripGrantsByAccount returns all of an account's trip grants.
func (s *Store) ListTripGrantsByAccount(ctx context.Context, accountID string) ([]storage.TripGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+selectGrantColumns+` FROM trip_grants WHERE account_id = ? ORDER BY trip_id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list trip grants: %w", err)
	}
	defer rows.Close()

	var grants []storage.TripGrant
	for rows.Next() {
		grant, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan trip grant: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trip grants: %w", err)
	}
	return grants, nil
}

func scanGrant(scan func(dest ...any) error) (storage.TripGrant, error) {
	var grant storage.TripGrant
	var createdAt int64
	var updatedAt int64
	if err := scan(&grant.AccountID, &grant.TripID, &grant.Role, &grant.GrantedBy, &createdAt, &updatedAt); err != nil {
		return storage.TripGrant{}, err
	}
	grant.CreatedAt = fromMillis(createdAt)
	grant.UpdatedAt = fromMillis(updatedAt)
	return grant, nil
}
