package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// SubmissionView is a point-in-time snapshot of one submission
type SubmissionView struct {
	User       models.User
	Submission models.Submission
	Counts     models.MediaCounts
	Media      []models.Media // only filled by ViewSubmission
}

// CreateSubmission opens a submission in the given section. If the user already
// has an active submission it is returned unchanged with created set to false.
func (s *Service) CreateSubmission(ctx context.Context, userID int64, sectionRaw string) (sub models.Submission, created bool, err error) {
	section, err := models.ParseSection(sectionRaw)
	if err != nil {
		return models.Submission{}, false, fmt.Errorf("%w: %q", ErrInvalidSection, sectionRaw)
	}

	var user models.User
	err = s.db.Update(ctx, func(tx storage.Tx) error {
		var err error
		if user, err = requireEditor(ctx, tx, userID); err != nil {
			return err
		}

		active, err := tx.GetActiveSubmission(ctx, userID)
		switch {
		case err == nil:
			sub = active
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		latest, err := tx.GetLatestSubmission(ctx, userID)
		switch {
		case err == nil:
			if wait := RetryAfter(latest.CreatedAt, s.now(), s.cooldown); wait > 0 {
				return &RateLimitedError{RetryAfter: wait}
			}
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		sub, err = tx.CreateSubmission(ctx, models.Submission{
			UserID:    userID,
			Section:   section,
			Decision:  models.DecisionPending,
			CreatedAt: s.now(),
		})
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		s.logResult("create submission", err, zap.Int64("user_id", userID))
		return models.Submission{}, false, err
	}

	if created {
		s.logger.Info("Submission created",
			zap.Int64("user_id", userID),
			zap.Int64("submission_id", sub.ID),
			zap.String("section", string(sub.Section)),
		)
		s.notifier.NotifyAdmins(ctx, TemplateSubmissionCreated, Notification{User: user, Submission: sub})
	}
	return sub, created, nil
}

// editable loads a submission inside tx and checks userID may modify it
func editable(ctx context.Context, tx storage.Tx, userID, submissionID int64) (models.User, models.Submission, error) {
	user, err := requireEditor(ctx, tx, userID)
	if err != nil {
		return user, models.Submission{}, err
	}
	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return user, models.Submission{}, err
	}
	if sub.UserID != userID {
		return user, sub, ErrNotOwner
	}
	if !sub.Decision.IsActive() {
		return user, sub, ErrNotEditable
	}
	return user, sub, nil
}

// BeginMediaIntake points the user's next uploads at a submission and category
func (s *Service) BeginMediaIntake(ctx context.Context, userID, submissionID int64, categoryRaw string) (models.MediaCounts, error) {
	category, err := models.ParseCategory(categoryRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, categoryRaw)
	}

	var counts models.MediaCounts
	err = s.db.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := editable(ctx, tx, userID, submissionID); err != nil {
			return err
		}
		if err := tx.SetIntakeState(ctx, models.IntakeState{
			UserID:       userID,
			SubmissionID: submissionID,
			Category:     category,
			UpdatedAt:    s.now(),
		}); err != nil {
			return err
		}
		counts, err = tx.CountMedia(ctx, submissionID)
		return err
	})
	if err != nil {
		s.logResult("begin media intake", err,
			zap.Int64("user_id", userID),
			zap.Int64("submission_id", submissionID),
			zap.String("category", categoryRaw),
		)
		return nil, err
	}
	return counts, nil
}

func validKind(kind models.MediaKind) bool {
	switch kind {
	case models.KindPhoto, models.KindVideo, models.KindAnimation:
		return true
	}
	return false
}

// ReceiveMedia stores one uploaded asset under the user's current intake pointer.
// A pointer that no longer matches an editable submission is dropped.
func (s *Service) ReceiveMedia(ctx context.Context, userID int64, kind models.MediaKind, handle string) (models.Media, models.MediaCounts, error) {
	if !validKind(kind) || strings.TrimSpace(handle) == "" {
		return models.Media{}, nil, fmt.Errorf("%w: unsupported media", ErrInvalidState)
	}

	var (
		media  models.Media
		counts models.MediaCounts
		stale  bool
	)
	err := s.db.Update(ctx, func(tx storage.Tx) error {
		if _, err := requireEditor(ctx, tx, userID); err != nil {
			return err
		}

		state, err := tx.GetIntakeState(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotAwaitingMedia
		}
		if err != nil {
			return err
		}

		sub, err := tx.GetSubmission(ctx, state.SubmissionID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err != nil || sub.UserID != userID || !sub.Decision.IsActive() {
			stale = true
			return tx.ClearIntakeState(ctx, userID)
		}

		media, err = tx.AddMedia(ctx, models.Media{
			SubmissionID: sub.ID,
			Category:     state.Category,
			Kind:         kind,
			Handle:       handle,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return err
		}
		counts, err = tx.CountMedia(ctx, sub.ID)
		return err
	})
	if err == nil && stale {
		err = ErrNotAwaitingMedia
	}
	if err != nil {
		s.logResult("receive media", err, zap.Int64("user_id", userID))
		return models.Media{}, nil, err
	}
	return media, counts, nil
}

// Submit sends a complete submission to the moderators. Submitting again after
// a needs-fix decision notifies the moderators again.
func (s *Service) Submit(ctx context.Context, userID, submissionID int64) (models.Submission, error) {
	var (
		user   models.User
		sub    models.Submission
		counts models.MediaCounts
	)
	err := s.db.Update(ctx, func(tx storage.Tx) error {
		var err error
		user, sub, err = editable(ctx, tx, userID, submissionID)
		if err != nil {
			return err
		}
		counts, err = tx.CountMedia(ctx, sub.ID)
		if err != nil {
			return err
		}
		if !counts.Complete() {
			return &IncompleteError{Missing: counts.Missing()}
		}
		at := s.now()
		if err := tx.MarkSubmitted(ctx, sub.ID, at); err != nil {
			return err
		}
		if err := tx.ClearIntakeState(ctx, userID); err != nil {
			return err
		}
		sub.Decision = models.DecisionPending
		sub.SubmittedAt = &at
		return nil
	})
	if err != nil {
		s.logResult("submit", err, zap.Int64("user_id", userID), zap.Int64("submission_id", submissionID))
		return models.Submission{}, err
	}

	s.logger.Info("Submission sent for moderation",
		zap.Int64("user_id", userID),
		zap.Int64("submission_id", sub.ID),
	)
	s.notifier.NotifyAdmins(ctx, TemplateSubmissionSubmitted, Notification{
		User:       user,
		Submission: sub,
		Counts:     counts,
	})
	return sub, nil
}

// Reset deletes the user's active submission with its media and clears the
// intake pointer. It reports whether a submission was deleted.
func (s *Service) Reset(ctx context.Context, userID int64) (bool, error) {
	deleted := false
	err := s.db.Update(ctx, func(tx storage.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if user.Status == models.StatusBanned {
			return ErrAccountBanned
		}

		active, err := tx.GetActiveSubmission(ctx, userID)
		switch {
		case err == nil:
			if err := tx.DeleteSubmission(ctx, active.ID); err != nil {
				return err
			}
			deleted = true
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return tx.ClearIntakeState(ctx, userID)
	})
	if err != nil {
		s.logResult("reset", err, zap.Int64("user_id", userID))
		return false, err
	}
	if deleted {
		s.logger.Info("Submission reset", zap.Int64("user_id", userID))
	}
	return deleted, nil
}

// ActiveSubmission returns the user's active submission with its media counts
func (s *Service) ActiveSubmission(ctx context.Context, userID int64) (SubmissionView, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return SubmissionView{}, err
	}
	sub, err := s.db.GetActiveSubmission(ctx, userID)
	if err != nil {
		return SubmissionView{User: user}, err
	}
	counts, err := s.db.CountMedia(ctx, sub.ID)
	if err != nil {
		return SubmissionView{User: user}, err
	}
	return SubmissionView{User: user, Submission: sub, Counts: counts}, nil
}

// ListMySubmissions returns the user's most recent submissions, newest first
func (s *Service) ListMySubmissions(ctx context.Context, userID int64) ([]models.Submission, error) {
	return s.db.ListUserSubmissions(ctx, userID, HistoryLimit)
}
