package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mantishub/Moderate/internal/api/handler"
	"github.com/mantishub/Moderate/internal/config"
	"github.com/mantishub/Moderate/internal/host"
	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/moderate"
	"github.com/mantishub/Moderate/internal/notify"
	"github.com/mantishub/Moderate/internal/queuehub"
	"github.com/mantishub/Moderate/internal/storage"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "moderatedb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.QueueEntry{},
		&host.User{},
		&host.Project{},
		&host.ProjectAccess{},
		&host.Issue{},
		&host.Note{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Moderate service...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	store := storage.NewStorageService(db, rdb)
	hostSvc := host.NewService(db)

	// Reporter notices go to Telegram when a bot token is configured,
	// otherwise onto the Redis outbox for the host's mail worker.
	var notifier moderate.Notifier = notify.NewRedisOutbox(rdb)
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tg, err := notify.NewTelegramNotifier(token, hostSvc.TelegramChatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
		notifier = tg
	}

	engine := moderate.NewService(store, hostSvc, hostSvc, hostSvc, notifier, config.Load())

	hub := queuehub.NewManagerService(rdb)
	go hub.Run()

	jwtSecret := []byte(envOr("JWT_SECRET", "insecure-dev-secret"))

	r := gin.Default()
	h := handler.NewHandler(engine, hub, jwtSecret)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           envOr("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
