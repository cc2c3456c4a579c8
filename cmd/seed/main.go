package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/config"
	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/models"
)

// Seeds the route and bus catalogue with sample data for local development.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	routeRepo := database.NewRouteRepository(db)
	busRepo := database.NewBusRepository(db)

	routes := sampleRoutes()
	for i := range routes {
		if err := routeRepo.Create(&routes[i]); err != nil {
			logger.Fatalf("Failed to create route %s: %v", routes[i].RouteNumber, err)
		}
		logger.WithField("route_number", routes[i].RouteNumber).Info("Route created")
	}

	buses := sampleBuses()
	for i := range buses {
		// Spread buses across the routes round-robin, like the catalogue
		// bootstrap the frontend expects
		buses[i].RouteID = routes[i%len(routes)].ID
		if err := busRepo.Create(&buses[i]); err != nil {
			logger.Fatalf("Failed to create bus %s: %v", buses[i].BusNumber, err)
		}
		logger.WithField("bus_number", buses[i].BusNumber).Info("Bus created")
	}

	logger.Infof("Seeded %d routes and %d buses", len(routes), len(buses))
}

func sampleRoutes() []models.Route {
	return []models.Route{
		{
			RouteNumber:    "R001",
			RouteName:      "Downtown to Airport",
			StartPointName: "Downtown Central",
			StartPointLat:  40.7128,
			StartPointLng:  -74.0060,
			EndPointName:   "City Airport",
			EndPointLat:    40.6892,
			EndPointLng:    -74.1745,
			Stops: models.StopList{
				{Name: "Central Station", Coordinates: models.Coordinates{Latitude: 40.7128, Longitude: -74.0060}, EstimatedTime: 0},
				{Name: "University District", Coordinates: models.Coordinates{Latitude: 40.7589, Longitude: -73.9851}, EstimatedTime: 15},
				{Name: "Business Park", Coordinates: models.Coordinates{Latitude: 40.7505, Longitude: -73.9934}, EstimatedTime: 30},
				{Name: "Airport Terminal", Coordinates: models.Coordinates{Latitude: 40.6892, Longitude: -74.1745}, EstimatedTime: 45},
			},
			TotalDistanceKm:      25.5,
			EstimatedDurationMin: 45,
			IsActive:             true,
		},
		{
			RouteNumber:    "R002",
			RouteName:      "North to South Express",
			StartPointName: "North Terminal",
			StartPointLat:  40.8176,
			StartPointLng:  -73.9782,
			EndPointName:   "South Station",
			EndPointLat:    40.6892,
			EndPointLng:    -74.0445,
			Stops: models.StopList{
				{Name: "North Terminal", Coordinates: models.Coordinates{Latitude: 40.8176, Longitude: -73.9782}, EstimatedTime: 0},
				{Name: "Midtown Plaza", Coordinates: models.Coordinates{Latitude: 40.7589, Longitude: -73.9851}, EstimatedTime: 20},
				{Name: "South Station", Coordinates: models.Coordinates{Latitude: 40.6892, Longitude: -74.0445}, EstimatedTime: 40},
			},
			TotalDistanceKm:      18.2,
			EstimatedDurationMin: 40,
			IsActive:             true,
		},
	}
}

func sampleBuses() []models.Bus {
	return []models.Bus{
		{
			BusNumber:        "B001",
			BusName:          "City Express 1",
			Capacity:         50,
			CurrentLatitude:  40.7128,
			CurrentLongitude: -74.0060,
			IsActive:         true,
		},
		{
			BusNumber:        "B002",
			BusName:          "City Express 2",
			Capacity:         45,
			CurrentLatitude:  40.7589,
			CurrentLongitude: -73.9851,
			IsActive:         true,
		},
		{
			BusNumber:        "B003",
			BusName:          "North-South Express",
			Capacity:         40,
			CurrentLatitude:  40.8176,
			CurrentLongitude: -73.9782,
			IsActive:         true,
		},
	}
}
