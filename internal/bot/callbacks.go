package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/models"
)

// splitAction parses "<action>:<id>" callback payloads
func splitAction(payload string) (string, int64, bool) {
	i := strings.LastIndex(payload, ":")
	if i <= 0 {
		return "", 0, false
	}
	id, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return payload[:i], id, true
}

func (b *Bot) handleCreateCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64) {
	status, err := b.service.GetStatus(ctx, query.From.ID)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	switch status {
	case models.StatusBanned:
		b.answerCallback(query, textBanned, true)
		return
	case models.StatusApproved:
		b.answerCallback(query, textAlreadyApproved, true)
		return
	}
	b.answerCallback(query, "", false)
	b.sendText(chatID, textChooseSection, sectionKeyboard())
}

func (b *Bot) handleSectionCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64, section string) {
	sub, created, err := b.service.CreateSubmission(ctx, query.From.ID, section)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "", false)
	if !created {
		b.sendText(chatID, activeExistsText(sub), mediaKeyboard(sub.ID))
		return
	}
	b.editMessage(query.Message, fmt.Sprintf("Section: %s", sectionTitle(sub.Section)))
	b.sendText(chatID, createdText(sub), mediaKeyboard(sub.ID))
}

// handleAddCallback points media intake at a category: add:<category>:<id>
func (b *Bot) handleAddCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64, payload string) {
	category, id, ok := splitAction(payload)
	if !ok {
		b.answerCallback(query, textUnknownCommand, false)
		return
	}
	if _, err := b.service.BeginMediaIntake(ctx, query.From.ID, id, category); err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "", false)
	b.sendText(chatID, intakeText(models.Category(category)), nil)
}

func (b *Bot) handleSubmitCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64, payload string) {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		b.answerCallback(query, textUnknownCommand, false)
		return
	}
	sub, err := b.service.Submit(ctx, query.From.ID, id)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "", false)
	b.sendText(chatID, submittedText(sub), nil)
}

func (b *Bot) handleResetCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64) {
	deleted, err := b.service.Reset(ctx, query.From.ID)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "", false)
	if !deleted {
		b.sendText(chatID, textNoActive, startKeyboard())
		return
	}
	b.sendText(chatID, textResetDone, startKeyboard())
}

// handleModerateCallback applies a moderator action: mod:<verdict|view>:<id>
func (b *Bot) handleModerateCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64, payload string) {
	action, id, ok := splitAction(payload)
	if !ok {
		b.answerCallback(query, textUnknownCommand, false)
		return
	}
	if !b.service.IsAdmin(query.From.ID) {
		b.answerCallback(query, textAccessDenied, true)
		return
	}

	if action == viewAction {
		b.replaySubmission(ctx, query, chatID, id)
		return
	}

	out, err := b.service.Decide(ctx, query.From.ID, id, action)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "Done", false)

	moderator := usernameOf(profileOf(query.From))
	if query.From.UserName == "" {
		moderator = strconv.FormatInt(query.From.ID, 10)
	}
	b.editMessage(query.Message, outcomeText(out, moderator))
}

// replaySubmission sends the summary and every media item of a submission to the moderator
func (b *Bot) replaySubmission(ctx context.Context, query *tgbotapi.CallbackQuery, chatID, id int64) {
	view, err := b.service.ViewSubmission(ctx, query.From.ID, id)
	if err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}
	b.answerCallback(query, "", false)
	b.sendText(chatID, submissionSummary(view), nil)

	for _, m := range view.Media {
		if err := sendMedia(b.api, chatID, m.Kind, m.Handle); err != nil {
			b.logger.Warn("Failed to replay media",
				zap.Int64("submission_id", id),
				zap.Int64("media_id", m.ID),
				zap.Error(err),
			)
		}
	}
	if view.Submission.Decision == models.DecisionPending {
		b.sendText(chatID, fmt.Sprintf("Decision for #%d:", id), moderationKeyboard(id))
	}
}

func (b *Bot) handleAdminCallback(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64, action string) {
	if !b.service.IsAdmin(query.From.ID) {
		b.answerCallback(query, textAccessDenied, true)
		return
	}

	switch action {
	case "pending":
		subs, err := b.service.PendingQueue(ctx, query.From.ID)
		if err != nil {
			b.answerCallback(query, errorText(err), true)
			return
		}
		b.answerCallback(query, "", false)
		if len(subs) == 0 {
			b.sendText(chatID, textNoPending, nil)
			return
		}
		b.sendText(chatID, fmt.Sprintf("⏳ Awaiting moderation: %d", len(subs)), nil)
		for _, sub := range subs {
			user, err := b.service.GetUser(ctx, sub.UserID)
			if err != nil {
				b.logger.Debug("Pending submission without user", zap.Int64("submission_id", sub.ID), zap.Error(err))
			}
			b.sendText(chatID, pendingLine(sub, user), moderationKeyboard(sub.ID))
		}
	case "stats":
		stats, err := b.service.Stats(ctx, query.From.ID)
		if err != nil {
			b.answerCallback(query, errorText(err), true)
			return
		}
		b.answerCallback(query, "", false)
		b.sendText(chatID, statsText(stats), nil)
	default:
		b.answerCallback(query, textUnknownCommand, false)
	}
}
