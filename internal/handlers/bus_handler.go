package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/internal/services"
)

// BusHandler serves the route/bus catalogue and live tracking endpoints
type BusHandler struct {
	busService      *services.BusService
	trackingService *services.TrackingService
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(busService *services.BusService, trackingService *services.TrackingService) *BusHandler {
	return &BusHandler{
		busService:      busService,
		trackingService: trackingService,
	}
}

// GetRoutes lists all active routes
func (h *BusHandler) GetRoutes(c *gin.Context) {
	routes, err := h.busService.GetRoutes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get routes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "routes": routes})
}

// GetRoute returns a single route with its stops
func (h *BusHandler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid route id"})
		return
	}

	route, err := h.busService.GetRoute(routeID)
	if err != nil {
		if errors.Is(err, services.ErrRouteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get route"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "route": route})
}

// GetBuses lists all active buses
func (h *BusHandler) GetBuses(c *gin.Context) {
	buses, err := h.busService.GetBuses()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get buses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "buses": buses})
}

// GetBusesByRoute lists the active buses assigned to a route
func (h *BusHandler) GetBusesByRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid route id"})
		return
	}

	buses, err := h.busService.GetBusesByRoute(routeID)
	if err != nil {
		if errors.Is(err, services.ErrRouteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get buses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "buses": buses})
}

// GetBus returns a single bus
func (h *BusHandler) GetBus(c *gin.Context) {
	busID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid bus id"})
		return
	}

	bus, err := h.busService.GetBus(busID)
	if err != nil {
		if errors.Is(err, services.ErrBusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Bus not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get bus"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bus": bus})
}

// TrackBus returns the live location for a bus
func (h *BusHandler) TrackBus(c *gin.Context) {
	busID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid bus id"})
		return
	}

	location, err := h.trackingService.GetLiveLocation(c.Request.Context(), busID)
	if err != nil {
		if errors.Is(err, services.ErrBusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Bus not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get bus location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "location": location})
}

// UpdateLocation records a driver-reported position
func (h *BusHandler) UpdateLocation(c *gin.Context) {
	busID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid bus id"})
		return
	}

	var req models.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "details": err.Error()})
		return
	}

	location, err := h.trackingService.UpdateLocation(c.Request.Context(), busID, *req.Latitude, *req.Longitude)
	if err != nil {
		if errors.Is(err, services.ErrBusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Bus not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "location": location})
}
