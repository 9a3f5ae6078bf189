package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/ports"
)

// MeetingLocationService manages the places crews gather before a workout.
type MeetingLocationService struct {
	locations ports.MeetingLocationRepository
}

// NewMeetingLocationService creates a new MeetingLocationService.
func NewMeetingLocationService(locations ports.MeetingLocationRepository) *MeetingLocationService {
	return &MeetingLocationService{locations: locations}
}

// Create stores a meeting location picked on the map.
func (s *MeetingLocationService) Create(ctx context.Context, crewID, name string, at domain.GeoPoint) (*domain.MeetingLocation, error) {
	crewID = strings.TrimSpace(crewID)
	name = strings.TrimSpace(name)
	if crewID == "" {
		return nil, fmt.Errorf("%w: crew_id is required", domain.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	loc := &domain.MeetingLocation{
		ID:        uuid.NewString(),
		CrewID:    crewID,
		Name:      name,
		Location:  at,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("create meeting location: %w", err)
	}
	return loc, nil
}

// GetByID returns a meeting location by ID.
func (s *MeetingLocationService) GetByID(ctx context.Context, id string) (*domain.MeetingLocation, error) {
	return s.locations.GetByID(ctx, id)
}

// ListByCrew returns a crew's meeting locations.
func (s *MeetingLocationService) ListByCrew(ctx context.Context, crewID string) ([]domain.MeetingLocation, error) {
	if crewID == "" {
		return nil, fmt.Errorf("%w: crew_id is required", domain.ErrInvalidInput)
	}
	return s.locations.ListByCrew(ctx, crewID)
}
