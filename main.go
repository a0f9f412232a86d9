package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/skewcube/skewcube-backend-go/config"
	"github.com/skewcube/skewcube-backend-go/database"
	"github.com/skewcube/skewcube-backend-go/events"
	"github.com/skewcube/skewcube-backend-go/handlers"
	"github.com/skewcube/skewcube-backend-go/logging"
	customMiddleware "github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/routes"
	"github.com/skewcube/skewcube-backend-go/search"
	"github.com/skewcube/skewcube-backend-go/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	db, err := database.Connect(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	logger.Info("connected to MongoDB")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		cancel()
		log.Fatal("Failed to create indexes:", err)
	}
	cancel()

	var store storage.Store
	if cfg.AWSBucket != "" {
		s3store, err := storage.NewS3Store(context.Background(), cfg.AWSBucket, cfg.AWSRegion)
		if err != nil {
			log.Fatal("Failed to configure object storage:", err)
		}
		store = s3store
	} else {
		logger.Warn("object storage not configured, image uploads disabled")
	}

	searchSvc := &search.Service{DB: db, Index: cfg.ESIndex}
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatal("Failed to connect to Elasticsearch:", err)
		}
		searchSvc.ES = es
		logger.Info("connected to Elasticsearch")
	}

	var producer *events.Producer
	if cfg.KafkaBrokers != "" {
		producer = events.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer producer.Close()
	}

	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(customMiddleware.Metrics())

	routes.SetupRoutes(e, db, routes.Handlers{
		Auth:      &handlers.AuthHandler{DB: db, Log: logger},
		Category:  &handlers.CategoryHandler{DB: db},
		Product:   &handlers.ProductHandler{DB: db, Storage: store, Search: searchSvc, Events: producer, Log: logger},
		Cart:      &handlers.CartHandler{DB: db},
		Review:    &handlers.ReviewHandler{DB: db},
		Order:     &handlers.OrderHandler{DB: db, Events: producer, Log: logger},
		Dashboard: &handlers.DashboardHandler{DB: db},
		Search:    &handlers.SearchHandler{Search: searchSvc},
	})

	logger.Info("server starting", "port", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
