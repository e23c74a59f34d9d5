package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moderation/internal/models"
	"moderation/internal/moderation"
)

// handleStart shows the welcome message for the user's status
func (b *Bot) handleStart(message *tgbotapi.Message, user models.User) {
	var markup *tgbotapi.InlineKeyboardMarkup
	if user.Status == models.StatusPending {
		markup = startKeyboard()
	}
	b.reply(message, welcomeText(user.Status), markup)
	if b.service.IsAdmin(user.ID) {
		b.sendText(message.Chat.ID, textAdminPanel, adminKeyboard())
	}
}

// statusFor renders the account status and active submission of a user.
// The media keyboard is returned while a submission is active.
func (b *Bot) statusFor(ctx context.Context, userID int64) (string, *tgbotapi.InlineKeyboardMarkup) {
	view, err := b.service.ActiveSubmission(ctx, userID)
	switch {
	case err == nil:
		return statusText(view, true), mediaKeyboard(view.Submission.ID)
	case errors.Is(err, moderation.ErrNotFound) && view.User.ID != 0:
		return statusText(view, false), nil
	}
	return errorText(err), nil
}

func (b *Bot) handleStatus(ctx context.Context, message *tgbotapi.Message) {
	text, markup := b.statusFor(ctx, message.From.ID)
	b.reply(message, text, markup)
}

func (b *Bot) handleMy(ctx context.Context, message *tgbotapi.Message) {
	subs, err := b.service.ListMySubmissions(ctx, message.From.ID)
	if err != nil {
		b.reply(message, errorText(err), nil)
		return
	}
	if len(subs) == 0 {
		b.reply(message, textNoSubmissions, nil)
		return
	}
	b.reply(message, mySubmissionsText(subs), nil)
}

func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) {
	deleted, err := b.service.Reset(ctx, message.From.ID)
	if err != nil {
		b.reply(message, errorText(err), nil)
		return
	}
	if !deleted {
		b.reply(message, textNoActive, nil)
		return
	}
	b.reply(message, textResetDone, startKeyboard())
}

func (b *Bot) handleAdmin(message *tgbotapi.Message) {
	if !b.service.IsAdmin(message.From.ID) {
		b.reply(message, textAccessDenied, nil)
		return
	}
	b.reply(message, textAdminPanel, adminKeyboard())
}

// handleHistory shows the audit journal of a submission: /history <id>
func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	if !b.service.IsAdmin(message.From.ID) {
		b.reply(message, textAccessDenied, nil)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(message.CommandArguments()), 10, 64)
	if err != nil || id <= 0 {
		b.reply(message, textHistoryUsage, nil)
		return
	}
	records, err := b.service.DecisionHistory(ctx, message.From.ID, id)
	if err != nil {
		b.reply(message, errorText(err), nil)
		return
	}
	if len(records) == 0 {
		b.reply(message, textHistoryEmpty, nil)
		return
	}
	b.reply(message, historyText(id, records), nil)
}
