// Package sqlite provides the durable SQLite-backed store.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// Store persists users, submissions, media and intake pointers in one SQLite file.
// All writes go through Update, which holds mu for the whole transaction.
type Store struct {
	db     *sqlx.DB
	mu     sync.Mutex
	logger *zap.Logger
	reads  queries
}

// Open opens (creating if needed) the database file at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := "file:" + cleanPath +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	// single connection: one writer, and transactions never interleave with stray reads
	db.SetMaxOpenConns(1)

	return &Store{
		db:     db,
		logger: logger,
		reads:  queries{q: db},
	}, nil
}

// Initialize applies the embedded schema migrations
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunMigrations(s.db.DB, s.logger)
}

// Update runs fn inside one transaction while holding the write gate
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fail("begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Rollback failed, state may need manual reconciliation", zap.Error(rbErr))
		}
	}()

	if err := fn(queries{q: tx}); err != nil {
		if errors.Is(err, storage.ErrFailure) {
			s.logger.Error("Storage write failed", zap.Error(err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fail("commit", err)
	}
	committed = true
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID int64) (models.User, error) {
	return s.reads.GetUser(ctx, userID)
}

func (s *Store) GetSubmission(ctx context.Context, id int64) (models.Submission, error) {
	return s.reads.GetSubmission(ctx, id)
}

func (s *Store) GetActiveSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	return s.reads.GetActiveSubmission(ctx, userID)
}

func (s *Store) GetLatestSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	return s.reads.GetLatestSubmission(ctx, userID)
}

func (s *Store) ListUserSubmissions(ctx context.Context, userID int64, limit int) ([]models.Submission, error) {
	return s.reads.ListUserSubmissions(ctx, userID, limit)
}

func (s *Store) ListAwaitingModeration(ctx context.Context, limit int) ([]models.Submission, error) {
	return s.reads.ListAwaitingModeration(ctx, limit)
}

func (s *Store) ListMedia(ctx context.Context, submissionID int64) ([]models.Media, error) {
	return s.reads.ListMedia(ctx, submissionID)
}

func (s *Store) CountMedia(ctx context.Context, submissionID int64) (models.MediaCounts, error) {
	return s.reads.CountMedia(ctx, submissionID)
}

func (s *Store) GetIntakeState(ctx context.Context, userID int64) (models.IntakeState, error) {
	return s.reads.GetIntakeState(ctx, userID)
}

// Stats returns the aggregate counts for the health surface
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var row struct {
		TotalUsers          int `db:"total_users"`
		PendingSubmissions  int `db:"pending_submissions"`
		ApprovedSubmissions int `db:"approved_submissions"`
		ApprovedUsers       int `db:"approved_users"`
		BannedUsers         int `db:"banned_users"`
	}
	err := sqlx.GetContext(ctx, s.db, &row, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM submissions WHERE decision = 'pending') AS pending_submissions,
			(SELECT COUNT(*) FROM submissions WHERE decision = 'approved') AS approved_submissions,
			(SELECT COUNT(*) FROM users WHERE status = 'approved') AS approved_users,
			(SELECT COUNT(*) FROM users WHERE status = 'banned') AS banned_users`)
	if err != nil {
		return models.Stats{}, fail("stats", err)
	}
	return models.Stats{
		TotalUsers:          row.TotalUsers,
		PendingSubmissions:  row.PendingSubmissions,
		ApprovedSubmissions: row.ApprovedSubmissions,
		ApprovedUsers:       row.ApprovedUsers,
		BannedUsers:         row.BannedUsers,
	}, nil
}

// DB exposes the underlying handle for the migrate command
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Tx      = queries{}
)
