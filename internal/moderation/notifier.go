package moderation

import (
	"context"

	"moderation/internal/models"
)

// Template identifies which outbound message the transport should render
type Template string

const (
	TemplateNewUser             Template = "new_user"
	TemplateSubmissionCreated   Template = "submission_created"
	TemplateSubmissionSubmitted Template = "submission_submitted"
	TemplateApproved            Template = "approved"
	TemplateRejected            Template = "rejected"
	TemplateNeedsFix            Template = "needs_fix"
	TemplateDecisionRecorded    Template = "decision_recorded"
)

// Notification is the data handed to the transport for rendering
type Notification struct {
	User       models.User
	Submission models.Submission
	Counts     models.MediaCounts
	Verdict    models.Verdict
	AdminID    int64
}

// Notifier delivers outbound messages. Calls are fire-and-forget: they are made
// after the store lock is released and their failure never undoes a committed change.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, tmpl Template, data Notification)
	NotifyAdmins(ctx context.Context, tmpl Template, data Notification)
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) NotifyUser(context.Context, int64, Template, Notification) {}

func (NopNotifier) NotifyAdmins(context.Context, Template, Notification) {}
