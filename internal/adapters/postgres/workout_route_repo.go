package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/pkg/geospatial"
)

// WorkoutRouteRepo implements ports.WorkoutRouteRepository. Route headers
// live in workout_routes, legs in route_legs with the polyline as JSONB.
type WorkoutRouteRepo struct {
	db *DB
}

// NewWorkoutRouteRepo creates a new WorkoutRouteRepo.
func NewWorkoutRouteRepo(db *DB) *WorkoutRouteRepo {
	return &WorkoutRouteRepo{db: db}
}

const selectRoute = `
	SELECT r.id, r.crew_id, r.name, COALESCE(r.meeting_location_id::text, ''),
	       r.warmup, r.chilldown, r.stops, r.distance_meters,
	       COALESCE(r.gpx_object_key, ''), r.created_at,
	       COALESCE((
	           SELECT json_agg(json_build_object(
	                      'polyline', l.polyline,
	                      'distance', l.distance_meters,
	                      'leg_number', l.leg_number) ORDER BY l.leg_number)
	           FROM route_legs l WHERE l.route_id = r.id
	       ), '[]'::json)
	FROM workout_routes r`

// Create inserts the route and its legs in one transaction.
func (r *WorkoutRouteRepo) Create(ctx context.Context, route *domain.WorkoutRoute) error {
	warmup, err := json.Marshal(route.WarmupLocation)
	if err != nil {
		return fmt.Errorf("marshal warmup: %w", err)
	}
	chilldown, err := json.Marshal(route.ChilldownLocation)
	if err != nil {
		return fmt.Errorf("marshal chilldown: %w", err)
	}
	stops := route.Stops
	if stops == nil {
		stops = []domain.GeoPoint{}
	}
	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if route.CreatedAt.IsZero() {
		route.CreatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO workout_routes (id, crew_id, name, meeting_location_id, warmup, chilldown, stops,
		                            distance_meters, gpx_object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, route.ID, route.CrewID, route.Name, nullIfEmpty(route.MeetingLocationID),
		warmup, chilldown, stopsJSON, route.DistanceMeters, nullIfEmpty(route.GPXObjectKey),
		route.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}

	batch := &pgx.Batch{}
	for _, leg := range route.Legs {
		polyline, err := json.Marshal(leg.Polyline)
		if err != nil {
			return fmt.Errorf("marshal leg %d: %w", leg.LegNumber, err)
		}
		batch.Queue(`
			INSERT INTO route_legs (route_id, leg_number, distance_meters, polyline, encoded_polyline)
			VALUES ($1, $2, $3, $4, $5)
		`, route.ID, leg.LegNumber, leg.Distance, polyline, encodeLeg(leg.Polyline))
	}
	br := tx.SendBatch(ctx, batch)
	for range route.Legs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *WorkoutRouteRepo) GetByID(ctx context.Context, id string) (*domain.WorkoutRoute, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	route, err := scanRoute(r.db.Pool.QueryRow(ctx, selectRoute+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return route, nil
}

func (r *WorkoutRouteRepo) ListByCrew(ctx context.Context, crewID string) ([]domain.WorkoutRoute, error) {
	return r.list(ctx, selectRoute+` WHERE r.crew_id = $1 ORDER BY r.created_at DESC`, crewID)
}

func (r *WorkoutRouteRepo) ListByMeetingLocation(ctx context.Context, meetingLocationID string) ([]domain.WorkoutRoute, error) {
	if !validID(meetingLocationID) {
		return []domain.WorkoutRoute{}, nil
	}
	return r.list(ctx, selectRoute+` WHERE r.meeting_location_id = $1 ORDER BY r.created_at DESC`, meetingLocationID)
}

func (r *WorkoutRouteRepo) SetGPXObjectKey(ctx context.Context, id, key string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `UPDATE workout_routes SET gpx_object_key = $2 WHERE id = $1`, id, nullIfEmpty(key))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a route; its legs go with it via ON DELETE CASCADE.
func (r *WorkoutRouteRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM workout_routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WorkoutRouteRepo) list(ctx context.Context, query string, arg string) ([]domain.WorkoutRoute, error) {
	rows, err := r.db.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := []domain.WorkoutRoute{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}
	return routes, rows.Err()
}

func scanRoute(row pgx.Row) (*domain.WorkoutRoute, error) {
	var (
		route                          domain.WorkoutRoute
		warmup, chilldown, stops, legs []byte
	)
	if err := row.Scan(&route.ID, &route.CrewID, &route.Name, &route.MeetingLocationID,
		&warmup, &chilldown, &stops, &route.DistanceMeters,
		&route.GPXObjectKey, &route.CreatedAt, &legs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(warmup, &route.WarmupLocation); err != nil {
		return nil, fmt.Errorf("decode warmup: %w", err)
	}
	if err := json.Unmarshal(chilldown, &route.ChilldownLocation); err != nil {
		return nil, fmt.Errorf("decode chilldown: %w", err)
	}
	if err := json.Unmarshal(stops, &route.Stops); err != nil {
		return nil, fmt.Errorf("decode stops: %w", err)
	}
	if err := json.Unmarshal(legs, &route.Legs); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	return &route, nil
}

func encodeLeg(points []domain.GeoPoint) string {
	coords := make([][2]float64, len(points))
	for i, p := range points {
		coords[i] = [2]float64{p.Lat, p.Lon}
	}
	return geospatial.EncodePolyline(coords)
}
