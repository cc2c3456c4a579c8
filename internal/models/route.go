package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Stop is a named point on a route
type Stop struct {
	Name          string      `json:"name"`
	Coordinates   Coordinates `json:"coordinates"`
	EstimatedTime int         `json:"estimated_time"` // minutes from route start
}

// StopList is stored as a JSONB column
type StopList []Stop

// Value implements the driver.Valuer interface
func (s StopList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *StopList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for StopList: %T", src)
	}
	return json.Unmarshal(data, s)
}

// Route represents a bus route with its stop sequence
type Route struct {
	ID                   uuid.UUID   `json:"id" db:"id"`
	RouteNumber          string      `json:"route_number" db:"route_number"`
	RouteName            string      `json:"route_name" db:"route_name"`
	StartPointName       string      `json:"-" db:"start_point_name"`
	StartPointLat        float64     `json:"-" db:"start_point_lat"`
	StartPointLng        float64     `json:"-" db:"start_point_lng"`
	EndPointName         string      `json:"-" db:"end_point_name"`
	EndPointLat          float64     `json:"-" db:"end_point_lat"`
	EndPointLng          float64     `json:"-" db:"end_point_lng"`
	Stops                StopList    `json:"stops" db:"stops"`
	TotalDistanceKm      float64     `json:"total_distance_km" db:"total_distance_km"`
	EstimatedDurationMin int         `json:"estimated_duration_min" db:"estimated_duration_min"`
	IsActive             bool        `json:"is_active" db:"is_active"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`
	StartPoint           *NamedPoint `json:"start_point,omitempty" db:"-"`
	EndPoint             *NamedPoint `json:"end_point,omitempty" db:"-"`
}

// NamedPoint is a named location on the map
type NamedPoint struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// FillPoints populates the composed start/end point views from the flat columns
func (r *Route) FillPoints() {
	r.StartPoint = &NamedPoint{
		Name:        r.StartPointName,
		Coordinates: Coordinates{Latitude: r.StartPointLat, Longitude: r.StartPointLng},
	}
	r.EndPoint = &NamedPoint{
		Name:        r.EndPointName,
		Coordinates: Coordinates{Latitude: r.EndPointLat, Longitude: r.EndPointLng},
	}
}

// RouteSummary is the reduced route view embedded in booking responses
type RouteSummary struct {
	ID          uuid.UUID `json:"id"`
	RouteNumber string    `json:"route_number"`
	RouteName   string    `json:"route_name"`
}

// Summary returns the reduced view of the route
func (r *Route) Summary() RouteSummary {
	return RouteSummary{ID: r.ID, RouteNumber: r.RouteNumber, RouteName: r.RouteName}
}
