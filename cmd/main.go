package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"productdb-service/internal/config"
	"productdb-service/internal/events"
	"productdb-service/internal/handlers"
	"productdb-service/internal/middleware"
	"productdb-service/internal/repository"
	"productdb-service/internal/revision"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Product Database API
// @version 1.0.0
// @description Product lifecycle (End-of-Life) database with spreadsheet import

// @contact.name Product Database Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8087
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	// Set Redis password from GCP Secret Manager
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize revision recorder and repository
	revisions := revision.NewRecorder(logger)
	catalogRepo := repository.NewCatalogRepository(db, redisClient, revisions, logger)

	// Seed the reserved "unassigned" vendor
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalogRepo.EnsureUnassignedVendor(seedCtx); err != nil {
		log.Fatal("Failed to seed unassigned vendor:", err)
	}
	seedCancel()

	// Initialize event publisher only if events are enabled
	var eventsPublisher *events.Publisher
	if cfg.EventsEnabled && cfg.NatsURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NatsURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("Event publishing disabled")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Initialize handlers (events publisher may be nil)
	productsHandler := handlers.NewProductsHandler(catalogRepo, eventsPublisher, logger)
	importHandler := handlers.NewImportHandler(catalogRepo, eventsPublisher, logger)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("productdb-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("productdb-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("productdb", "productdb_service")
	log.Println("✓ Prometheus metrics initialized")

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("productdb-service"))
	router.Use(gosharedmw.CompressionMiddleware())

	// Add CORS middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check endpoints (no auth required)
	router.GET("/health", productsHandler.HealthCheck)
	router.GET("/ready", productsHandler.HealthCheck)
	router.GET("/metrics", gosharedmw.Handler())

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.Actor())
	{
		products := api.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.POST("", productsHandler.CreateProduct)
			products.GET("/:id", productsHandler.GetProduct)
			products.PUT("/:id", productsHandler.UpdateProduct)
			products.DELETE("/:id", productsHandler.DeleteProduct)

			// Bulk EoL lifecycle check
			products.POST("/eol-check", productsHandler.BulkEolCheck)

			// Spreadsheet import
			products.GET("/import/template", importHandler.GetImportTemplate)
			products.POST("/import", importHandler.ImportSpreadsheet)
		}

		vendors := api.Group("/vendors")
		{
			vendors.GET("", productsHandler.GetVendors)
			vendors.DELETE("/:id", productsHandler.DeleteVendor)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8087"
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Product database service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down productdb-service...")

	// Shutdown tracer provider
	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Product database service stopped")
}
