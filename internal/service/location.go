package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

const (
	MaxLocationNameLength = 100

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// LocationService handles GPS location records. Every operation is scoped
// to the requesting user; touching another user's record is forbidden, not
// hidden.
type LocationService struct {
	locations repository.LocationRepository
	logger    *slog.Logger
}

func NewLocationService(locations repository.LocationRepository, logger *slog.Logger) *LocationService {
	return &LocationService{locations: locations, logger: logger}
}

func (s *LocationService) Create(ctx context.Context, userID string, loc *model.GPSLocation) (*model.GPSLocation, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	loc.UserID = userID
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("service/location: creating location: %w", err)
	}

	s.logger.Info("location recorded",
		slog.String("locationID", loc.ID),
		slog.String("userID", userID),
	)
	return loc, nil
}

func (s *LocationService) Get(ctx context.Context, userID, id string) (*model.GPSLocation, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.UserID != userID {
		return nil, apperror.Forbidden("You do not have permission to access this location")
	}
	return loc, nil
}

func (s *LocationService) List(ctx context.Context, userID string, limit, offset int) ([]model.GPSLocation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	locations, err := s.locations.ListByUserID(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/location: listing locations: %w", err)
	}
	return locations, nil
}

func (s *LocationService) Update(ctx context.Context, userID, id string, updated *model.GPSLocation) (*model.GPSLocation, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateLocation(updated); err != nil {
		return nil, err
	}

	existing.Name = updated.Name
	existing.Latitude = updated.Latitude
	existing.Longitude = updated.Longitude
	existing.Altitude = updated.Altitude
	if !updated.RecordedAt.IsZero() {
		existing.RecordedAt = updated.RecordedAt
	}

	if err := s.locations.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("service/location: updating location %s: %w", id, err)
	}
	return existing, nil
}

func (s *LocationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.locations.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/location: deleting location %s: %w", id, err)
	}

	s.logger.Info("location deleted",
		slog.String("locationID", id),
		slog.String("userID", userID),
	)
	return nil
}

func validateLocation(loc *model.GPSLocation) error {
	if strings.TrimSpace(loc.Name) == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if len(loc.Name) > MaxLocationNameLength {
		return apperror.ValidationFailed("name", fmt.Sprintf("Name must be at most %d characters", MaxLocationNameLength))
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return apperror.ValidationFailed("latitude", "Latitude must be between -90 and 90")
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return apperror.ValidationFailed("longitude", "Longitude must be between -180 and 180")
	}
	return nil
}
