package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/models"
)

// ErrRouteNotFound is returned when a route id does not resolve
var ErrRouteNotFound = fmt.Errorf("route not found")

// BusService serves the route and bus catalogue
type BusService struct {
	busRepo   *database.BusRepository
	routeRepo *database.RouteRepository
	logger    *logrus.Logger
}

// NewBusService creates a new bus catalogue service
func NewBusService(busRepo *database.BusRepository, routeRepo *database.RouteRepository, logger *logrus.Logger) *BusService {
	return &BusService{
		busRepo:   busRepo,
		routeRepo: routeRepo,
		logger:    logger,
	}
}

// GetRoutes returns all active routes
func (s *BusService) GetRoutes() ([]models.Route, error) {
	routes, err := s.routeRepo.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to get routes: %w", err)
	}
	return routes, nil
}

// GetRoute returns a single route by id
func (s *BusService) GetRoute(id uuid.UUID) (*models.Route, error) {
	route, err := s.routeRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}
	return route, nil
}

// GetBuses returns all active buses
func (s *BusService) GetBuses() ([]models.Bus, error) {
	buses, err := s.busRepo.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to get buses: %w", err)
	}
	return buses, nil
}

// GetBusesByRoute returns the active buses assigned to a route
func (s *BusService) GetBusesByRoute(routeID uuid.UUID) ([]models.Bus, error) {
	route, err := s.routeRepo.GetByID(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}

	buses, err := s.busRepo.GetByRouteID(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buses: %w", err)
	}
	return buses, nil
}

// GetBus returns a single bus by id
func (s *BusService) GetBus(id uuid.UUID) (*models.Bus, error) {
	bus, err := s.busRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}
	return bus, nil
}
