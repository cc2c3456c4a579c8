package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/models"
)

// TrackingService serves live bus locations. Driver updates are written to
// the buses table and the location log, and cached in Redis; reads hit the
// cache first and fall back to the table.
type TrackingService struct {
	busRepo     *database.BusRepository
	locationLog *database.BusLocationLogRepository
	redis       *redis.Client
	ttl         time.Duration
	logger      *logrus.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(
	busRepo *database.BusRepository,
	locationLog *database.BusLocationLogRepository,
	redisClient *redis.Client,
	ttl time.Duration,
	logger *logrus.Logger,
) *TrackingService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TrackingService{
		busRepo:     busRepo,
		locationLog: locationLog,
		redis:       redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

// UpdateLocation records a driver-reported position
func (s *TrackingService) UpdateLocation(ctx context.Context, busID uuid.UUID, lat, lng float64) (*models.BusLocation, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("coordinates out of range")
	}

	bus, err := s.busRepo.GetByID(busID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}

	if err := s.busRepo.UpdateLocation(busID, lat, lng); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}

	if err := s.locationLog.Insert(busID, lat, lng); err != nil {
		// The log is an audit trail; losing one sample is tolerable
		s.logger.WithError(err).WithField("bus_id", busID).Warn("Failed to append location log")
	}

	location := &models.BusLocation{
		BusID:       busID,
		BusNumber:   bus.BusNumber,
		BusName:     bus.BusName,
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lng},
		RecordedAt:  time.Now(),
	}

	s.cacheLocation(ctx, location)

	return location, nil
}

// GetLiveLocation returns the most recent known position for a bus
func (s *TrackingService) GetLiveLocation(ctx context.Context, busID uuid.UUID) (*models.BusLocation, error) {
	if cached := s.cachedLocation(ctx, busID); cached != nil {
		return cached, nil
	}

	bus, err := s.busRepo.GetByID(busID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}

	location := &models.BusLocation{
		BusID:       bus.ID,
		BusNumber:   bus.BusNumber,
		BusName:     bus.BusName,
		Coordinates: models.Coordinates{Latitude: bus.CurrentLatitude, Longitude: bus.CurrentLongitude},
		RecordedAt:  bus.LastUpdated,
	}

	s.cacheLocation(ctx, location)

	return location, nil
}

func (s *TrackingService) cacheLocation(ctx context.Context, location *models.BusLocation) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(location)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, locationKey(location.BusID), payload, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("bus_id", location.BusID).Warn("Failed to cache bus location")
	}
}

func (s *TrackingService) cachedLocation(ctx context.Context, busID uuid.UUID) *models.BusLocation {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, locationKey(busID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).WithField("bus_id", busID).Warn("Failed to read cached bus location")
		}
		return nil
	}

	var location models.BusLocation
	if err := json.Unmarshal(data, &location); err != nil {
		return nil
	}

	return &location
}

func locationKey(busID uuid.UUID) string {
	return fmt.Sprintf("track:bus:%s", busID)
}
