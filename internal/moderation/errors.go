package moderation

import (
	"errors"
	"fmt"
	"time"

	"moderation/internal/models"
	"moderation/internal/storage"
)

var (
	ErrNotFound       = storage.ErrNotFound
	ErrStorageFailure = storage.ErrFailure

	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrRateLimited          = errors.New("rate limited")
	ErrIncompleteSubmission = errors.New("submission is incomplete")
	ErrInvalidCategory      = errors.New("invalid media category")
	ErrInvalidSection       = errors.New("invalid section")
	ErrInvalidVerdict       = errors.New("invalid verdict")
	ErrNotAwaitingMedia     = errors.New("not awaiting media")
	ErrUnauthorized         = errors.New("unauthorized")
)

// Detailed InvalidState reasons
var (
	ErrAccountBanned   = fmt.Errorf("%w: account is banned", ErrInvalidState)
	ErrAccountApproved = fmt.Errorf("%w: account is already approved", ErrInvalidState)
	ErrNotOwner        = fmt.Errorf("%w: submission belongs to another user", ErrInvalidState)
	ErrNotEditable     = fmt.Errorf("%w: submission is no longer editable", ErrInvalidState)
	ErrAwaitingFixes   = fmt.Errorf("%w: submission is waiting for the user's fixes", ErrInvalidState)
)

// RateLimitedError is returned when a new submission is requested inside the cooldown window
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// IncompleteError lists the mandatory categories that still have no media
type IncompleteError struct {
	Missing []models.Category
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("submission is incomplete: missing %v", e.Missing)
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncompleteSubmission
}
