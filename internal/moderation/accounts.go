package moderation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// EnsureUser records a contact from userID, refreshing the profile snapshot.
// The first ever contact creates the account in pending and notifies the admins.
func (s *Service) EnsureUser(ctx context.Context, userID int64, profile models.Profile) (models.User, error) {
	var (
		user    models.User
		created bool
	)
	err := s.db.Update(ctx, func(tx storage.Tx) error {
		var err error
		user, created, err = tx.UpsertUser(ctx, userID, profile, s.now())
		return err
	})
	if err != nil {
		s.logResult("ensure user", err, zap.Int64("user_id", userID))
		return models.User{}, err
	}

	if created {
		s.logger.Info("New user registered", zap.Int64("user_id", userID), zap.String("username", profile.Username))
		s.notifier.NotifyAdmins(ctx, TemplateNewUser, Notification{User: user})
	}
	return user, nil
}

// GetStatus returns the account status of userID
func (s *Service) GetStatus(ctx context.Context, userID int64) (models.AccountStatus, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// GetUser returns the account of userID
func (s *Service) GetUser(ctx context.Context, userID int64) (models.User, error) {
	return s.db.GetUser(ctx, userID)
}

// canTransition reports whether an account may move from one status to another.
// banned is terminal.
func canTransition(from, to models.AccountStatus) bool {
	if from == models.StatusBanned {
		return to == models.StatusBanned
	}
	switch to {
	case models.StatusPending, models.StatusApproved, models.StatusBanned:
		return true
	}
	return false
}

// setStatus changes an account status inside tx and returns the previous one
func (s *Service) setStatus(ctx context.Context, tx storage.Tx, userID int64, to models.AccountStatus) (models.AccountStatus, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !canTransition(user.Status, to) {
		return user.Status, fmt.Errorf("%w: cannot move account from %s to %s", ErrInvalidState, user.Status, to)
	}
	if user.Status == to {
		return user.Status, nil
	}
	if err := tx.SetUserStatus(ctx, userID, to, s.now()); err != nil {
		return user.Status, err
	}
	return user.Status, nil
}

// requireEditor loads the account of userID inside tx and checks it may act on submissions
func requireEditor(ctx context.Context, tx storage.Tx, userID int64) (models.User, error) {
	user, err := tx.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.User{}, err
	}
	switch user.Status {
	case models.StatusBanned:
		return user, ErrAccountBanned
	case models.StatusApproved:
		return user, ErrAccountApproved
	}
	return user, nil
}
