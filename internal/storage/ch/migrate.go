package ch

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"moderation/internal/storage/ch/migrations"
)

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.log.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.log.Fatalf(format, v...) }

// setupGoose points goose at the ClickHouse dialect and the embedded journal migrations.
// goose keeps this configuration globally, so it is reapplied before every command.
func setupGoose(logger *zap.Logger) error {
	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log: logger.Sugar()})
	return nil
}

// RunMigrations creates or upgrades the journal table
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if err := setupGoose(logger); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent journal migration
func MigrateDown(db *sql.DB, logger *zap.Logger) error {
	if err := setupGoose(logger); err != nil {
		return err
	}
	if err := goose.Down(db, "."); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// MigrationStatus prints the state of every journal migration
func MigrationStatus(db *sql.DB, logger *zap.Logger) error {
	if err := setupGoose(logger); err != nil {
		return err
	}
	if err := goose.Status(db, "."); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied journal schema version
func MigrationVersion(db *sql.DB, logger *zap.Logger) (int64, error) {
	if err := setupGoose(logger); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
