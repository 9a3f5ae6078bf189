package postgres

import (
	"context"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// MeetingLocationRepo implements ports.MeetingLocationRepository with pgx.
type MeetingLocationRepo struct {
	db *DB
}

// NewMeetingLocationRepo creates a new MeetingLocationRepo.
func NewMeetingLocationRepo(db *DB) *MeetingLocationRepo {
	return &MeetingLocationRepo{db: db}
}

func (r *MeetingLocationRepo) Create(ctx context.Context, loc *domain.MeetingLocation) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO meeting_locations (id, crew_id, name, location)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography)
		RETURNING created_at
	`, loc.ID, loc.CrewID, loc.Name, loc.Location.Lon, loc.Location.Lat).Scan(&loc.CreatedAt)
}

func (r *MeetingLocationRepo) GetByID(ctx context.Context, id string) (*domain.MeetingLocation, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var loc domain.MeetingLocation
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, crew_id, name, ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM meeting_locations WHERE id = $1
	`, id).Scan(&loc.ID, &loc.CrewID, &loc.Name, &loc.Location.Lat, &loc.Location.Lon, &loc.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

func (r *MeetingLocationRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.MeetingLocation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, crew_id, name, ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM meeting_locations WHERE crew_id = $1 ORDER BY name
	`, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locs := []domain.MeetingLocation{}
	for rows.Next() {
		var loc domain.MeetingLocation
		if err := rows.Scan(&loc.ID, &loc.CrewID, &loc.Name, &loc.Location.Lat, &loc.Location.Lon, &loc.CreatedAt); err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}
