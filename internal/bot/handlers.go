package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/models"
)

// handleUpdate routes a single update. It runs on a dispatcher worker.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(update.CallbackQuery)
	}
}

func profileOf(u *tgbotapi.User) models.Profile {
	return models.Profile{
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// register records the sender's contact and returns the current account
func (b *Bot) register(ctx context.Context, from *tgbotapi.User) (models.User, error) {
	user, err := b.service.EnsureUser(ctx, from.ID, profileOf(from))
	if err != nil {
		b.logger.Error("Failed to register user", zap.Int64("user_id", from.ID), zap.Error(err))
	}
	return user, err
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendText(message.Chat.ID, textGenericError, nil)
		}
	}()

	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return
	}
	ctx := context.Background()

	user, err := b.register(ctx, message.From)
	if err != nil {
		b.reply(message, errorText(err), nil)
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start", "help":
			b.handleStart(message, user)
		case "status":
			b.handleStatus(ctx, message)
		case "my":
			b.handleMy(ctx, message)
		case "reset":
			b.handleReset(ctx, message)
		case "admin":
			b.handleAdmin(message)
		case "history":
			b.handleHistory(ctx, message)
		default:
			b.reply(message, textUnknownCommand, nil)
		}
		return
	}

	b.handleMedia(ctx, message)
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
			b.answerCallback(query, textGenericError, true)
		}
	}()

	if query.From == nil {
		return
	}
	ctx := context.Background()

	if _, err := b.register(ctx, query.From); err != nil {
		b.answerCallback(query, errorText(err), true)
		return
	}

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}

	data := query.Data
	switch {
	case data == cbCreate:
		b.handleCreateCallback(ctx, query, chatID)
	case data == cbStatus:
		b.answerCallback(query, "", false)
		text, markup := b.statusFor(ctx, query.From.ID)
		b.sendText(chatID, text, markup)
	case strings.HasPrefix(data, cbSection):
		b.handleSectionCallback(ctx, query, chatID, strings.TrimPrefix(data, cbSection))
	case strings.HasPrefix(data, cbAdd):
		b.handleAddCallback(ctx, query, chatID, strings.TrimPrefix(data, cbAdd))
	case strings.HasPrefix(data, cbSubmit):
		b.handleSubmitCallback(ctx, query, chatID, strings.TrimPrefix(data, cbSubmit))
	case strings.HasPrefix(data, cbReset):
		b.handleResetCallback(ctx, query, chatID)
	case strings.HasPrefix(data, cbModerate):
		b.handleModerateCallback(ctx, query, chatID, strings.TrimPrefix(data, cbModerate))
	case strings.HasPrefix(data, cbAdmin):
		b.handleAdminCallback(ctx, query, chatID, strings.TrimPrefix(data, cbAdmin))
	default:
		b.answerCallback(query, textUnknownCommand, false)
	}
}
