package database

import (
	"github.com/google/uuid"
)

// BusLocationLogRepository appends driver-reported positions for audit and
// later timetable analysis
type BusLocationLogRepository struct {
	db DB
}

// NewBusLocationLogRepository creates a new BusLocationLogRepository
func NewBusLocationLogRepository(db DB) *BusLocationLogRepository {
	return &BusLocationLogRepository{db: db}
}

// Insert appends a location sample for a bus
func (r *BusLocationLogRepository) Insert(busID uuid.UUID, lat, lng float64) error {
	query := `
		INSERT INTO bus_location_logs (id, bus_id, latitude, longitude)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(query, uuid.New(), busID, lat, lng)
	return err
}
