package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moderation/internal/models"
	"moderation/internal/moderation"
)

// extractMedia returns the kind and file handle of a media message.
// Telegram attaches a photo preview to animations, so Animation is checked first.
func extractMedia(message *tgbotapi.Message) (models.MediaKind, string, bool) {
	switch {
	case message.Animation != nil:
		return models.KindAnimation, message.Animation.FileID, true
	case len(message.Photo) > 0:
		// the last size is the largest
		return models.KindPhoto, message.Photo[len(message.Photo)-1].FileID, true
	case message.Video != nil:
		return models.KindVideo, message.Video.FileID, true
	}
	return "", "", false
}

func hasUnsupportedAttachment(message *tgbotapi.Message) bool {
	return message.Document != nil || message.Sticker != nil || message.Audio != nil ||
		message.Voice != nil || message.VideoNote != nil
}

// handleMedia stores an uploaded file under the user's current intake category
func (b *Bot) handleMedia(ctx context.Context, message *tgbotapi.Message) {
	kind, handle, ok := extractMedia(message)
	if !ok {
		if hasUnsupportedAttachment(message) {
			b.reply(message, textUnsupportedMedia, nil)
		}
		return
	}

	media, counts, err := b.service.ReceiveMedia(ctx, message.From.ID, kind, handle)
	if err != nil {
		var markup *tgbotapi.InlineKeyboardMarkup
		if errors.Is(err, moderation.ErrNotAwaitingMedia) {
			if view, verr := b.service.ActiveSubmission(ctx, message.From.ID); verr == nil {
				markup = mediaKeyboard(view.Submission.ID)
			}
		}
		b.reply(message, errorText(err), markup)
		return
	}
	b.reply(message, mediaSavedText(media.Category, counts), mediaKeyboard(media.SubmissionID))
}
