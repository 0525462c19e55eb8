package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bookstack/internal/config"
	"bookstack/internal/handlers"
	"bookstack/internal/models"
	"bookstack/internal/repositories"
	"bookstack/internal/services"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// TranslateError reports uniqueness violations as gorm.ErrDuplicatedKey
	// across drivers instead of driver-specific messages.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Bookmark{},
		&models.Comment{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	bookmarkRepo := repositories.NewBookmarkRepository(db)
	commentRepo := repositories.NewCommentRepository(db)

	stats := services.NewStatsEngine(bookmarkRepo, commentRepo)
	catalogService := services.NewCatalogService(db, userRepo, bookRepo, bookmarkRepo, commentRepo, stats)

	router := gin.Default()

	handlers.RegisterRoutes(router, catalogService, userRepo)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
