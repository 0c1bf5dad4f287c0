package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

var _ repository.LocationRepository = (*LocationStore)(nil)

// LocationStore implements repository.LocationRepository.
type LocationStore struct {
	conn *sql.DB
}

const locationColumns = `id, user_id, name, latitude, longitude, altitude, recorded_at, created_at, updated_at`

// Create inserts a new GPS location record.
func (s *LocationStore) Create(ctx context.Context, loc *model.GPSLocation) error {
	loc.ID = xid.New().String()
	now := time.Now()
	loc.CreatedAt = now
	loc.UpdatedAt = now
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = now
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO gps_locations (`+locationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID,
		loc.UserID,
		loc.Name,
		loc.Latitude,
		loc.Longitude,
		loc.Altitude,
		loc.RecordedAt,
		loc.CreatedAt,
		loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting gps location: %w", err)
	}

	return nil
}

// GetByID retrieves a single location record.
// Returns apperror.ErrNotFound if it doesn't exist.
func (s *LocationStore) GetByID(ctx context.Context, id string) (*model.GPSLocation, error) {
	var loc model.GPSLocation

	err := s.conn.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM gps_locations WHERE id = ?`, id,
	).Scan(
		&loc.ID,
		&loc.UserID,
		&loc.Name,
		&loc.Latitude,
		&loc.Longitude,
		&loc.Altitude,
		&loc.RecordedAt,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("gps location", id)
		}
		return nil, fmt.Errorf("sqlite: getting gps location %s: %w", id, err)
	}

	return &loc, nil
}

// ListByUserID returns a user's locations, newest fix first.
func (s *LocationStore) ListByUserID(ctx context.Context, userID string, opts repository.ListOptions) ([]model.GPSLocation, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM gps_locations
		 WHERE user_id = ?
		 ORDER BY recorded_at DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing gps locations: %w", err)
	}
	defer rows.Close()

	locations := []model.GPSLocation{}
	for rows.Next() {
		var loc model.GPSLocation
		if err := rows.Scan(
			&loc.ID,
			&loc.UserID,
			&loc.Name,
			&loc.Latitude,
			&loc.Longitude,
			&loc.Altitude,
			&loc.RecordedAt,
			&loc.CreatedAt,
			&loc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning gps location row: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating gps locations: %w", err)
	}

	return locations, nil
}

// Update rewrites the mutable fields of a location record.
func (s *LocationStore) Update(ctx context.Context, loc *model.GPSLocation) error {
	loc.UpdatedAt = time.Now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE gps_locations
		 SET name = ?, latitude = ?, longitude = ?, altitude = ?, recorded_at = ?, updated_at = ?
		 WHERE id = ?`,
		loc.Name,
		loc.Latitude,
		loc.Longitude,
		loc.Altitude,
		loc.RecordedAt,
		loc.UpdatedAt,
		loc.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating gps location %s: %w", loc.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("gps location", loc.ID)
	}

	return nil
}

// Delete removes a location record.
func (s *LocationStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM gps_locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting gps location %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("gps location", id)
	}

	return nil
}
