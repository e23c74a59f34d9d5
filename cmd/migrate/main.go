package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"moderation/internal/config"
	"moderation/internal/logger"
	"moderation/internal/storage/ch"
	"moderation/internal/storage/sqlite"
)

const usage = "Usage: migrate [sqlite|clickhouse] [up|down|status|version]"

// migrator runs one goose command against one store
type migrator struct {
	up      func(*sql.DB, *zap.Logger) error
	down    func(*sql.DB, *zap.Logger) error
	status  func(*sql.DB, *zap.Logger) error
	version func(*sql.DB, *zap.Logger) (int64, error)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	target, command := "sqlite", "up"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	cfg, err := config.LoadStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	db, m, err := open(target, cfg)
	if err != nil {
		zl.Fatal("Failed to open database", zap.String("target", target), zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		zl.Fatal("Failed to ping database", zap.String("target", target), zap.Error(err))
	}

	zl.Info("Running migrations", zap.String("target", target), zap.String("command", command))
	switch command {
	case "up":
		err = m.up(db, zl)
	case "down":
		err = m.down(db, zl)
	case "status":
		err = m.status(db, zl)
	case "version":
		var version int64
		if version, err = m.version(db, zl); err == nil {
			zl.Info("Current migration version", zap.Int64("version", version))
		}
	default:
		log.Fatalf("Unknown command: %s. %s", command, usage)
	}
	if err != nil {
		zl.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
	zl.Info("Migration command completed", zap.String("command", command))
}

func open(target string, cfg *config.Config) (*sql.DB, migrator, error) {
	switch target {
	case "sqlite":
		store, err := sqlite.Open(cfg.DBPath, zap.NewNop())
		if err != nil {
			return nil, migrator{}, err
		}
		return store.DB().DB, migrator{
			up:      sqlite.RunMigrations,
			down:    sqlite.MigrateDown,
			status:  sqlite.MigrationStatus,
			version: sqlite.MigrationVersion,
		}, nil
	case "clickhouse":
		if cfg.ClickHouseHost == "" {
			return nil, migrator{}, fmt.Errorf("CLICKHOUSE_HOST is required")
		}
		db := ch.OpenSQL(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
			cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS)
		return db, migrator{
			up:      ch.RunMigrations,
			down:    ch.MigrateDown,
			status:  ch.MigrationStatus,
			version: ch.MigrationVersion,
		}, nil
	}
	return nil, migrator{}, fmt.Errorf("unknown target %q. %s", target, usage)
}
