package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"moderation/internal/app"
)

// Runs the bot against a throwaway SQLite file and a ClickHouse journal in a container.
func main() {
	ctx := context.Background()

	// Token and admin IDs still come from .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Starting ClickHouse testcontainer...")
	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}
	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	dataDir, err := os.MkdirTemp("", "moderation-dev-")
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	defer os.RemoveAll(dataDir)

	os.Setenv("AUDIT_ENABLED", "true")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("DB_PATH", filepath.Join(dataDir, "moderation_bot.db"))
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	os.Setenv("APP_ENV", "development")
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "debug")
	}
	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set. Please set it in your .env file or environment.")
	}
	if os.Getenv("ADMIN_IDS") == "" {
		log.Println("⚠️  ADMIN_IDS not set. Nobody will be able to moderate submissions.")
	}

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM and shuts the app down itself
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
