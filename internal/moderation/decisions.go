package moderation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// Outcome describes a committed moderation decision
type Outcome struct {
	User           models.User
	Submission     models.Submission
	Verdict        models.Verdict
	PreviousStatus models.AccountStatus
	NewStatus      models.AccountStatus
}

// decisionFor maps a verdict to the submission decision it records
func decisionFor(v models.Verdict) models.Decision {
	switch v {
	case models.VerdictApprove:
		return models.DecisionApproved
	case models.VerdictReject:
		return models.DecisionRejected
	default:
		return models.DecisionNeedsFix
	}
}

// accountStatusFor maps a verdict to the account status it leaves behind
func (s *Service) accountStatusFor(v models.Verdict) models.AccountStatus {
	switch v {
	case models.VerdictApprove:
		return models.StatusApproved
	case models.VerdictReject:
		if s.rejectPolicy == RejectRetry {
			return models.StatusPending
		}
		return models.StatusBanned
	default:
		return models.StatusPending
	}
}

func userTemplateFor(v models.Verdict) Template {
	switch v {
	case models.VerdictApprove:
		return TemplateApproved
	case models.VerdictReject:
		return TemplateRejected
	default:
		return TemplateNeedsFix
	}
}

// Decide applies a moderator verdict to an active submission. The submission
// and account updates commit together or not at all.
func (s *Service) Decide(ctx context.Context, adminID, submissionID int64, verdictRaw string) (Outcome, error) {
	if !s.IsAdmin(adminID) {
		s.logger.Warn("Decision attempt by non-admin",
			zap.Int64("admin_id", adminID),
			zap.Int64("submission_id", submissionID),
		)
		return Outcome{}, ErrUnauthorized
	}
	verdict, err := models.ParseVerdict(verdictRaw)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidVerdict, verdictRaw)
	}

	var out Outcome
	err = s.db.Update(ctx, func(tx storage.Tx) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if !sub.Decision.IsActive() {
			return ErrNotEditable
		}
		// after needs_fix only a resubmission reopens moderation
		if sub.Decision == models.DecisionNeedsFix {
			return ErrAwaitingFixes
		}

		if verdict == models.VerdictApprove {
			counts, err := tx.CountMedia(ctx, sub.ID)
			if err != nil {
				return err
			}
			if !counts.Complete() {
				return &IncompleteError{Missing: counts.Missing()}
			}
		}

		at := s.now()
		decision := decisionFor(verdict)
		if err := tx.SetDecision(ctx, sub.ID, decision, adminID, at); err != nil {
			return err
		}

		newStatus := s.accountStatusFor(verdict)
		previous, err := s.setStatus(ctx, tx, sub.UserID, newStatus)
		if err != nil {
			s.logger.Error("Account update failed after decision write, rolling back",
				zap.Int64("submission_id", sub.ID),
				zap.Int64("user_id", sub.UserID),
				zap.String("decision", string(decision)),
				zap.Error(err),
			)
			return err
		}

		if verdict != models.VerdictNeedsFix {
			if err := tx.ClearIntakeState(ctx, sub.UserID); err != nil {
				return err
			}
		}

		user, err := tx.GetUser(ctx, sub.UserID)
		if err != nil {
			return err
		}

		sub.Decision = decision
		sub.ModeratorID = adminID
		sub.DecidedAt = &at
		out = Outcome{
			User:           user,
			Submission:     sub,
			Verdict:        verdict,
			PreviousStatus: previous,
			NewStatus:      newStatus,
		}
		return nil
	})
	if err != nil {
		s.logResult("decide", err,
			zap.Int64("admin_id", adminID),
			zap.Int64("submission_id", submissionID),
			zap.String("decision", string(verdict)),
		)
		return Outcome{}, err
	}

	s.logger.Info("Decision recorded",
		zap.Int64("admin_id", adminID),
		zap.Int64("submission_id", out.Submission.ID),
		zap.Int64("user_id", out.User.ID),
		zap.String("decision", string(out.Submission.Decision)),
	)

	s.recordAudit(ctx, out, adminID)

	data := Notification{User: out.User, Submission: out.Submission, Verdict: verdict, AdminID: adminID}
	s.notifier.NotifyUser(ctx, out.User.ID, userTemplateFor(verdict), data)
	s.notifier.NotifyAdmins(ctx, TemplateDecisionRecorded, data)
	return out, nil
}

// recordAudit appends the decision to the journal; failures are logged only
func (s *Service) recordAudit(ctx context.Context, out Outcome, adminID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.RecordDecision(ctx, models.DecisionRecord{
		SubmissionID:   out.Submission.ID,
		UserID:         out.User.ID,
		ModeratorID:    adminID,
		Verdict:        out.Verdict,
		Section:        out.Submission.Section,
		PreviousStatus: out.PreviousStatus,
		NewStatus:      out.NewStatus,
		DecidedAt:      *out.Submission.DecidedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to record decision in audit journal",
			zap.Int64("submission_id", out.Submission.ID),
			zap.Error(err),
		)
	}
}

// PendingQueue returns up to PendingQueueLimit submitted submissions awaiting a decision, oldest first
func (s *Service) PendingQueue(ctx context.Context, adminID int64) ([]models.Submission, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	return s.db.ListAwaitingModeration(ctx, PendingQueueLimit)
}

// ViewSubmission returns a submission with its owner and every media item
func (s *Service) ViewSubmission(ctx context.Context, adminID, submissionID int64) (SubmissionView, error) {
	if !s.IsAdmin(adminID) {
		return SubmissionView{}, ErrUnauthorized
	}
	sub, err := s.db.GetSubmission(ctx, submissionID)
	if err != nil {
		return SubmissionView{}, err
	}
	user, err := s.db.GetUser(ctx, sub.UserID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return SubmissionView{}, err
	}
	media, err := s.db.ListMedia(ctx, sub.ID)
	if err != nil {
		return SubmissionView{}, err
	}
	counts := models.MediaCounts{}
	for _, c := range models.MandatoryCategories {
		counts[c] = 0
	}
	for _, m := range media {
		counts[m.Category]++
	}
	return SubmissionView{User: user, Submission: sub, Counts: counts, Media: media}, nil
}

// DecisionHistory returns the journal entries of a submission. Without an
// audit journal the history is empty.
func (s *Service) DecisionHistory(ctx context.Context, adminID, submissionID int64) ([]models.DecisionRecord, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrUnauthorized
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListDecisions(ctx, submissionID)
}

// Stats returns the aggregate counts for an administrator
func (s *Service) Stats(ctx context.Context, adminID int64) (models.Stats, error) {
	if !s.IsAdmin(adminID) {
		return models.Stats{}, ErrUnauthorized
	}
	return s.db.Stats(ctx)
}
