package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/models"
)

// sendMessage sends a message and logs delivery failures
func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
	}
}

// sendText sends plain text, optionally with an inline keyboard
func (b *Bot) sendText(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.sendMessage(msg)
}

// reply answers a message in its chat
func (b *Bot) reply(message *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.sendMessage(msg)
}

// answerCallback removes the button loading state; alert shows text as a popup
func (b *Bot) answerCallback(query *tgbotapi.CallbackQuery, text string, alert bool) {
	callback := tgbotapi.NewCallback(query.ID, text)
	callback.ShowAlert = alert
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

// editMessage replaces the text of a message and drops its keyboard
func (b *Bot) editMessage(message *tgbotapi.Message, text string) {
	if message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("Failed to edit message", zap.Error(err))
	}
}

// sendMedia replays a stored media item to chatID
func sendMedia(api API, chatID int64, kind models.MediaKind, handle string) error {
	file := tgbotapi.FileID(handle)
	var c tgbotapi.Chattable
	switch kind {
	case models.KindVideo:
		c = tgbotapi.NewVideo(chatID, file)
	case models.KindAnimation:
		c = tgbotapi.NewAnimation(chatID, file)
	default:
		c = tgbotapi.NewPhoto(chatID, file)
	}
	_, err := api.Send(c)
	return err
}
