package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/options-journal/internal/config"
	"github.com/options-journal/internal/handler"
	"github.com/options-journal/internal/middleware"
	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/internal/service"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	memoryMode := flag.Bool("memory", false, "run with the in-memory store (no postgres)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	if err := middleware.InitLogger("logs"); err != nil {
		log.Printf("Warning: failed to init file logger: %v", err)
	}

	// Initialize repositories
	var (
		userRepo    repository.UserRepository
		tradeRepo   repository.TradeRepository
		commentRepo repository.CommentRepository
	)
	if *memoryMode {
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		tradeRepo = store.Trades()
		commentRepo = store.Comments()
		log.Println("Using in-memory store")
	} else {
		db, err := initDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := autoMigrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		userRepo = repository.NewGormUserRepository(db)
		tradeRepo = repository.NewGormTradeRepository(db)
		commentRepo = repository.NewGormCommentRepository(db)
	}

	// Initialize Redis (quote cache)
	rdb := initRedis(cfg)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	quoteService := service.NewQuoteService(rdb, service.QuoteServiceOptions{
		APIKey:    cfg.Quotes.APIKey,
		BaseURL:   cfg.Quotes.BaseURL,
		CacheTTL:  time.Duration(cfg.Quotes.CacheTTLMin) * time.Minute,
		PaceDelay: time.Duration(cfg.Quotes.PaceDelayMs) * time.Millisecond,
		Timeout:   time.Duration(cfg.Quotes.TimeoutSeconds) * time.Second,
	})
	tradeService := service.NewTradeService(tradeRepo, commentRepo, quoteService)
	positionService := service.NewPositionService(tradeRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	tradeHandler := handler.NewTradeHandler(tradeService)
	positionHandler := handler.NewPositionHandler(positionService)
	quoteHandler := handler.NewQuoteHandler(quoteService, tradeService)

	// Create Gin router
	router := gin.Default()
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
		})
	})

	// API routes
	api := router.Group("/api")
	{
		authMiddleware := middleware.AuthMiddleware(authService)

		authHandler.RegisterRoutes(api, authMiddleware)
		tradeHandler.RegisterRoutes(api, authMiddleware)
		positionHandler.RegisterRoutes(api, authMiddleware)
		quoteHandler.RegisterRoutes(api)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close Redis connection
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	log.Println("Server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Trade{},
		&models.Comment{},
	)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
