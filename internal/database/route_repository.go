package database

import (
	"database/sql"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// RouteRepository handles database operations for the routes table
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeSelect = `
	SELECT id, route_number, route_name,
		   start_point_name, start_point_lat, start_point_lng,
		   end_point_name, end_point_lat, end_point_lng,
		   stops, total_distance_km, estimated_duration_min,
		   is_active, created_at, updated_at
	FROM routes`

// GetAllActive retrieves all active routes ordered by name
func (r *RouteRepository) GetAllActive() ([]models.Route, error) {
	query := routeSelect + ` WHERE is_active = TRUE ORDER BY route_name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := []models.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}

	return routes, rows.Err()
}

// GetByID retrieves a route by ID
func (r *RouteRepository) GetByID(id uuid.UUID) (*models.Route, error) {
	query := routeSelect + ` WHERE id = $1`

	route, err := scanRoute(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return route, nil
}

// Create inserts a new route (used by the seeder)
func (r *RouteRepository) Create(route *models.Route) error {
	query := `
		INSERT INTO routes (
			id, route_number, route_name,
			start_point_name, start_point_lat, start_point_lng,
			end_point_name, end_point_lat, end_point_lng,
			stops, total_distance_km, estimated_duration_min, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		route.ID, route.RouteNumber, route.RouteName,
		route.StartPointName, route.StartPointLat, route.StartPointLng,
		route.EndPointName, route.EndPointLat, route.EndPointLng,
		route.Stops, route.TotalDistanceKm, route.EstimatedDurationMin, route.IsActive,
	).Scan(&route.CreatedAt, &route.UpdatedAt)
}

func scanRoute(row scanner) (*models.Route, error) {
	route := &models.Route{}

	err := row.Scan(
		&route.ID, &route.RouteNumber, &route.RouteName,
		&route.StartPointName, &route.StartPointLat, &route.StartPointLng,
		&route.EndPointName, &route.EndPointLat, &route.EndPointLng,
		&route.Stops, &route.TotalDistanceKm, &route.EstimatedDurationMin,
		&route.IsActive, &route.CreatedAt, &route.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	route.FillPoints()
	return route, nil
}
