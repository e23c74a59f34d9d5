package storage

import (
	"context"
	"errors"
	"time"

	"moderation/internal/models"
)

var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrFailure wraps every lower-level storage fault. A write that returns it did not happen.
	ErrFailure = errors.New("storage failure")
)

// Reader defines the read-only queries. Results are snapshots.
type Reader interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	GetSubmission(ctx context.Context, id int64) (models.Submission, error)

	// GetActiveSubmission returns the user's pending or needs_fix submission
	GetActiveSubmission(ctx context.Context, userID int64) (models.Submission, error)

	// GetLatestSubmission returns the user's most recently created submission in any state
	GetLatestSubmission(ctx context.Context, userID int64) (models.Submission, error)

	// ListUserSubmissions returns the user's submissions, newest first
	ListUserSubmissions(ctx context.Context, userID int64, limit int) ([]models.Submission, error)

	// ListAwaitingModeration returns submitted pending submissions, oldest first
	ListAwaitingModeration(ctx context.Context, limit int) ([]models.Submission, error)

	ListMedia(ctx context.Context, submissionID int64) ([]models.Media, error)
	CountMedia(ctx context.Context, submissionID int64) (models.MediaCounts, error)

	GetIntakeState(ctx context.Context, userID int64) (models.IntakeState, error)
}

// StatsReader exposes aggregate counts
type StatsReader interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// Writer defines the mutations available inside Storage.Update
type Writer interface {
	// UpsertUser creates the user in pending status or refreshes its profile.
	// The returned flag is true when the user was created.
	UpsertUser(ctx context.Context, userID int64, profile models.Profile, now time.Time) (models.User, bool, error)
	SetUserStatus(ctx context.Context, userID int64, status models.AccountStatus, now time.Time) error

	CreateSubmission(ctx context.Context, sub models.Submission) (models.Submission, error)

	// MarkSubmitted puts the submission back to pending and stamps the submit time
	MarkSubmitted(ctx context.Context, id int64, at time.Time) error
	SetDecision(ctx context.Context, id int64, decision models.Decision, moderatorID int64, at time.Time) error

	// DeleteSubmission removes the submission with its media and any intake pointer to it
	DeleteSubmission(ctx context.Context, id int64) error

	AddMedia(ctx context.Context, media models.Media) (models.Media, error)

	SetIntakeState(ctx context.Context, state models.IntakeState) error
	ClearIntakeState(ctx context.Context, userID int64) error
}

// Tx is the transactional view handed to Storage.Update
type Tx interface {
	Reader
	Writer
}

// Storage defines the interface for data storage operations
type Storage interface {
	Reader
	StatsReader

	// Update runs fn as one serialized transaction. Writers never run concurrently.
	// fn's error is returned unchanged and nothing it wrote is kept.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// AuditLog is the append-only journal of moderation decisions
type AuditLog interface {
	RecordDecision(ctx context.Context, record models.DecisionRecord) error
	ListDecisions(ctx context.Context, submissionID int64) ([]models.DecisionRecord, error)
	Close() error
}
