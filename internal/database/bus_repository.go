package database

import (
	"database/sql"
	"fmt"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// BusRepository handles database operations for the buses table
type BusRepository struct {
	db DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db DB) *BusRepository {
	return &BusRepository{db: db}
}

const busSelect = `
	SELECT b.id, b.bus_number, b.bus_name, b.capacity, b.route_id,
		   b.current_latitude, b.current_longitude, b.last_updated,
		   b.is_active, b.created_at, b.updated_at,
		   r.route_number, r.route_name
	FROM buses b
	JOIN routes r ON r.id = b.route_id`

// GetAllActive retrieves all active buses with their route summary
func (r *BusRepository) GetAllActive() ([]models.Bus, error) {
	query := busSelect + ` WHERE b.is_active = TRUE ORDER BY b.bus_number`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBuses(rows)
}

// GetByRouteID retrieves active buses assigned to a route
func (r *BusRepository) GetByRouteID(routeID uuid.UUID) ([]models.Bus, error) {
	query := busSelect + ` WHERE b.route_id = $1 AND b.is_active = TRUE ORDER BY b.bus_number`

	rows, err := r.db.Query(query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBuses(rows)
}

// GetByID retrieves a bus by ID
func (r *BusRepository) GetByID(id uuid.UUID) (*models.Bus, error) {
	query := busSelect + ` WHERE b.id = $1`

	bus, err := scanBus(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return bus, nil
}

// UpdateLocation stores the latest reported position of a bus
func (r *BusRepository) UpdateLocation(id uuid.UUID, lat, lng float64) error {
	query := `
		UPDATE buses
		SET current_latitude = $2, current_longitude = $3,
			last_updated = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id, lat, lng)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("bus not found")
	}

	return nil
}

// Create inserts a new bus (used by the seeder)
func (r *BusRepository) Create(bus *models.Bus) error {
	query := `
		INSERT INTO buses (
			id, bus_number, bus_name, capacity, route_id,
			current_latitude, current_longitude, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING last_updated, created_at, updated_at
	`

	if bus.ID == uuid.Nil {
		bus.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		bus.ID, bus.BusNumber, bus.BusName, bus.Capacity, bus.RouteID,
		bus.CurrentLatitude, bus.CurrentLongitude, bus.IsActive,
	).Scan(&bus.LastUpdated, &bus.CreatedAt, &bus.UpdatedAt)
}

func scanBus(row scanner) (*models.Bus, error) {
	bus := &models.Bus{}
	var routeNumber, routeName string

	err := row.Scan(
		&bus.ID, &bus.BusNumber, &bus.BusName, &bus.Capacity, &bus.RouteID,
		&bus.CurrentLatitude, &bus.CurrentLongitude, &bus.LastUpdated,
		&bus.IsActive, &bus.CreatedAt, &bus.UpdatedAt,
		&routeNumber, &routeName,
	)
	if err != nil {
		return nil, err
	}

	bus.FillLocation()
	bus.Route = &models.RouteSummary{ID: bus.RouteID, RouteNumber: routeNumber, RouteName: routeName}
	return bus, nil
}

func scanBuses(rows *sql.Rows) ([]models.Bus, error) {
	buses := []models.Bus{}

	for rows.Next() {
		bus, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, *bus)
	}

	return buses, rows.Err()
}
