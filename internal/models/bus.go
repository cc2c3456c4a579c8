package models

import (
	"time"

	"github.com/google/uuid"
)

// Bus represents a vehicle assigned to a route
type Bus struct {
	ID               uuid.UUID `json:"id" db:"id"`
	BusNumber        string    `json:"bus_number" db:"bus_number"`
	BusName          string    `json:"bus_name" db:"bus_name"`
	Capacity         int       `json:"capacity" db:"capacity"`
	RouteID          uuid.UUID `json:"route_id" db:"route_id"`
	CurrentLatitude  float64   `json:"-" db:"current_latitude"`
	CurrentLongitude float64   `json:"-" db:"current_longitude"`
	LastUpdated      time.Time `json:"last_updated" db:"last_updated"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`

	CurrentLocation *Coordinates  `json:"current_location,omitempty" db:"-"`
	Route           *RouteSummary `json:"route,omitempty" db:"-"`
}

// FillLocation populates the composed location view from the flat columns
func (b *Bus) FillLocation() {
	b.CurrentLocation = &Coordinates{
		Latitude:  b.CurrentLatitude,
		Longitude: b.CurrentLongitude,
	}
}

// BusSummary is the reduced bus view embedded in booking responses
type BusSummary struct {
	ID        uuid.UUID `json:"id"`
	BusNumber string    `json:"bus_number"`
	BusName   string    `json:"bus_name"`
}

// Summary returns the reduced view of the bus
func (b *Bus) Summary() BusSummary {
	return BusSummary{ID: b.ID, BusNumber: b.BusNumber, BusName: b.BusName}
}

// BusLocation is the live tracking view served from the cache
type BusLocation struct {
	BusID       uuid.UUID   `json:"bus_id"`
	BusNumber   string      `json:"bus_number"`
	BusName     string      `json:"bus_name"`
	Coordinates Coordinates `json:"coordinates"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

// UpdateLocationRequest is the payload posted by the driver app.
// Pointer fields so a zero coordinate still binds.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}
