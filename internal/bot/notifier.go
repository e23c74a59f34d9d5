package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/models"
	"moderation/internal/moderation"
)

// Notifier renders moderation notifications as Telegram messages.
// Delivery is best effort: failures are logged and never retried.
type Notifier struct {
	api    API
	admins []int64
	logger *zap.Logger
}

// NewNotifier creates a Telegram notifier for the given administrators
func NewNotifier(api API, admins []int64, logger *zap.Logger) *Notifier {
	return &Notifier{
		api:    api,
		admins: admins,
		logger: logger,
	}
}

// NotifyUser sends a decision message to a user
func (n *Notifier) NotifyUser(ctx context.Context, userID int64, tmpl moderation.Template, data moderation.Notification) {
	var text string
	switch tmpl {
	case moderation.TemplateApproved:
		text = fmt.Sprintf("🎉 Your submission #%d was approved. You now have access to every section.", data.Submission.ID)
	case moderation.TemplateRejected:
		if data.User.Status == models.StatusBanned {
			text = fmt.Sprintf("❌ Your submission #%d was rejected. You are banned.", data.Submission.ID)
		} else {
			text = fmt.Sprintf("❌ Your submission #%d was rejected. You can create a new one later with /start.", data.Submission.ID)
		}
	case moderation.TemplateNeedsFix:
		text = fmt.Sprintf("✏️ Submission #%d needs fixes. Please add or replace files and press \"Done\".", data.Submission.ID)
	default:
		n.logger.Warn("Unknown user notification", zap.String("template", string(tmpl)))
		return
	}

	msg := tgbotapi.NewMessage(userID, text)
	if tmpl == moderation.TemplateNeedsFix {
		msg.ReplyMarkup = *mediaKeyboard(data.Submission.ID)
	}
	n.send(msg, zap.Int64("user_id", userID), zap.String("template", string(tmpl)))
}

// NotifyAdmins sends a message to every administrator
func (n *Notifier) NotifyAdmins(ctx context.Context, tmpl moderation.Template, data moderation.Notification) {
	var (
		text   string
		markup *tgbotapi.InlineKeyboardMarkup
		skip   int64
	)
	switch tmpl {
	case moderation.TemplateNewUser:
		p := data.User.Profile
		text = fmt.Sprintf("🆕 New user: %d\nName: %s\nUsername: %s\nStatus: %s\nTime: %s",
			data.User.ID, p.DisplayName(), usernameOf(p), data.User.Status, formatTime(data.User.CreatedAt))
	case moderation.TemplateSubmissionCreated:
		text = fmt.Sprintf("🆕 Submission #%d created\nUser: %d (%s) %s\nSection: %s",
			data.Submission.ID,
			data.User.ID,
			data.User.Profile.DisplayName(),
			usernameOf(data.User.Profile),
			sectionTitle(data.Submission.Section))
	case moderation.TemplateSubmissionSubmitted:
		text = fmt.Sprintf("📨 Submission #%d\nUser: %d (%s) %s\nSection: %s\n%s\nSubmitted: %s",
			data.Submission.ID,
			data.User.ID,
			data.User.Profile.DisplayName(),
			usernameOf(data.User.Profile),
			sectionTitle(data.Submission.Section),
			countsLine(data.Counts),
			formatTime(submittedAt(data.Submission)))
		markup = moderationKeyboard(data.Submission.ID)
	case moderation.TemplateDecisionRecorded:
		// the deciding admin sees the outcome on the edited message
		skip = data.AdminID
		text = fmt.Sprintf("ℹ️ Submission #%d: %s by %d", data.Submission.ID, data.Verdict, data.AdminID)
	default:
		n.logger.Warn("Unknown admin notification", zap.String("template", string(tmpl)))
		return
	}

	for _, adminID := range n.admins {
		if adminID == skip {
			continue
		}
		msg := tgbotapi.NewMessage(adminID, text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		n.send(msg, zap.Int64("admin_id", adminID), zap.String("template", string(tmpl)))
	}
}

func submittedAt(sub models.Submission) time.Time {
	if sub.SubmittedAt != nil {
		return *sub.SubmittedAt
	}
	return sub.CreatedAt
}

func (n *Notifier) send(msg tgbotapi.Chattable, fields ...zap.Field) {
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("Failed to deliver notification", append(fields, zap.Error(err))...)
	}
}

var _ moderation.Notifier = (*Notifier)(nil)
