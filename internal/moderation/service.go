// Package moderation implements the account and submission state machines and
// the moderator decision engine on top of the storage gate.
package moderation

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moderation/internal/storage"
)

// RejectPolicy selects what a rejection does to the account
type RejectPolicy string

const (
	// RejectBan bans the account permanently
	RejectBan RejectPolicy = "ban"
	// RejectRetry returns the account to pending so a new submission can be opened
	RejectRetry RejectPolicy = "retry"
)

// ParseRejectPolicy validates a configured policy value
func ParseRejectPolicy(raw string) (RejectPolicy, error) {
	switch RejectPolicy(raw) {
	case RejectBan, RejectRetry:
		return RejectPolicy(raw), nil
	case "":
		return RejectBan, nil
	}
	return "", fmt.Errorf("unknown reject policy %q", raw)
}

const (
	PendingQueueLimit = 20
	HistoryLimit      = 10
)

// Options configures a Service
type Options struct {
	Admins       []int64
	Cooldown     time.Duration
	RejectPolicy RejectPolicy
	Notifier     Notifier
	Audit        storage.AuditLog // optional
	Logger       *zap.Logger
	Now          func() time.Time
}

// Service is the moderation core. It is safe for concurrent use; every
// state change runs inside one storage.Update call.
type Service struct {
	db           storage.Storage
	notifier     Notifier
	audit        storage.AuditLog
	admins       map[int64]bool
	cooldown     time.Duration
	rejectPolicy RejectPolicy
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a moderation service
func New(db storage.Storage, opts Options) *Service {
	admins := make(map[int64]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = true
	}

	s := &Service{
		db:           db,
		notifier:     opts.Notifier,
		audit:        opts.Audit,
		admins:       admins,
		cooldown:     opts.Cooldown,
		rejectPolicy: opts.RejectPolicy,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.rejectPolicy == "" {
		s.rejectPolicy = RejectBan
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IsAdmin reports whether id is in the configured administrator set
func (s *Service) IsAdmin(id int64) bool {
	return s.admins[id]
}

// Admins returns the administrator IDs
func (s *Service) Admins() []int64 {
	ids := make([]int64, 0, len(s.admins))
	for id := range s.admins {
		ids = append(ids, id)
	}
	return ids
}

// Cooldown returns the configured window between submissions
func (s *Service) Cooldown() time.Duration {
	return s.cooldown
}

// logResult logs a failed operation at the severity its kind deserves
func (s *Service) logResult(op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if errors.Is(err, ErrStorageFailure) {
		s.logger.Error("Storage failure", fields...)
		return
	}
	s.logger.Debug("Operation rejected", fields...)
}
