package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/config"
	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/events"
	"github.com/citytransit/bus-booking-backend/internal/handlers"
	"github.com/citytransit/bus-booking-backend/internal/middleware"
	"github.com/citytransit/bus-booking-backend/internal/services"
	"github.com/citytransit/bus-booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting CityTransit Bus Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Redis backs the live bus-location cache. The tracking service
	// degrades to DB reads when it is absent.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("Redis unavailable, live tracking falls back to database: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("Redis connection established")
		}
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	routeRepo := database.NewRouteRepository(db)
	busRepo := database.NewBusRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	ticketRepo := database.NewTicketRepository(db)
	locationLogRepo := database.NewBusLocationLogRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// The gateway client is built once here and injected; handlers never
	// construct their own.
	gateway := services.NewRazorpayGateway(&cfg.Payment, logger)
	if !gateway.IsConfigured() {
		if cfg.Server.Environment == "production" {
			logger.Fatal("Payment gateway credentials are required in production")
		}
		logger.Warn("Payment gateway credentials missing, checkout will fail")
	}

	producer := events.NewProducer(cfg.Events.Brokers, cfg.Events.Topic, logger)
	defer producer.Close()
	if producer == nil {
		logger.Info("Booking event producer disabled (no brokers configured)")
	}

	authService := services.NewAuthService(userRepo, jwtService, &cfg.Google, cfg.Security.BcryptCost, logger)
	busService := services.NewBusService(busRepo, routeRepo, logger)
	trackingService := services.NewTrackingService(busRepo, locationLogRepo, redisClient, cfg.Redis.LocationTTL, logger)
	orchestrator := services.NewBookingOrchestratorService(
		bookingRepo,
		paymentRepo,
		ticketRepo,
		busRepo,
		userRepo,
		gateway,
		producer,
		cfg.Payment.Provider,
		cfg.Payment.Currency,
		logger,
	)
	pdfService := services.NewTicketPDFService()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.Google.ClientRedirect)
	busHandler := handlers.NewBusHandler(busService, trackingService)
	paymentHandler := handlers.NewPaymentHandler(orchestrator)
	bookingHandler := handlers.NewBookingHandler(orchestrator, pdfService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/google", authHandler.GoogleAuth)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.AuthMiddleware(jwtService), authHandler.Logout)
			auth.GET("/me", middleware.AuthMiddleware(jwtService), authHandler.GetProfile)
			auth.PUT("/me", middleware.AuthMiddleware(jwtService), authHandler.UpdateProfile)
		}

		buses := api.Group("/buses")
		{
			buses.GET("/routes", busHandler.GetRoutes)
			buses.GET("/routes/:id", busHandler.GetRoute)
			buses.GET("", busHandler.GetBuses)
			buses.GET("/route/:routeId", busHandler.GetBusesByRoute)
			buses.GET("/:id", busHandler.GetBus)
			buses.GET("/:id/track", busHandler.TrackBus)
			buses.POST("/:id/location", middleware.AuthMiddleware(jwtService), busHandler.UpdateLocation)
		}

		payments := api.Group("/payments", middleware.AuthMiddleware(jwtService))
		{
			payments.POST("/create-order", paymentHandler.CreateOrder)
			payments.POST("/verify-payment", paymentHandler.VerifyPayment)
			payments.POST("/payment-failed", paymentHandler.PaymentFailed)
		}

		bookings := api.Group("/bookings")
		{
			// Boarding staff scan tickets without a passenger session
			bookings.POST("/verify-ticket", bookingHandler.VerifyTicket)

			authed := bookings.Group("", middleware.AuthMiddleware(jwtService))
			{
				authed.GET("/my-bookings", bookingHandler.MyBookings)
				authed.GET("/:id", bookingHandler.GetBooking)
				authed.GET("/:id/ticket.pdf", bookingHandler.TicketPDF)
				authed.PUT("/:id/cancel", bookingHandler.CancelBooking)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports service and database health
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "healthy",
			"version":  version,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}
