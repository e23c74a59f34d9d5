package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moderation/internal/models"
)

// Callback data prefixes
const (
	cbCreate   = "create"
	cbStatus   = "status"
	cbSection  = "section:"
	cbAdd      = "add:"
	cbSubmit   = "submit:"
	cbReset    = "reset:"
	cbModerate = "mod:"
	cbAdmin    = "admin:"
)

const viewAction = "view"

func startKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📝 Create submission", cbCreate)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ️ Status", cbStatus)),
	)
	return &kb
}

func sectionKeyboard() *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range models.Sections {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(sectionTitle(s), cbSection+string(s)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

func mediaKeyboard(submissionID int64) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add normal", fmt.Sprintf("%s%s:%d", cbAdd, models.CategoryNormal, submissionID)),
			tgbotapi.NewInlineKeyboardButtonData("➕ Add intimate", fmt.Sprintf("%s%s:%d", cbAdd, models.CategoryIntimate, submissionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done (send for moderation)", fmt.Sprintf("%s%d", cbSubmit, submissionID)),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Reset submission", fmt.Sprintf("%s%d", cbReset, submissionID)),
		),
	)
	return &kb
}

func moderationKeyboard(submissionID int64) *tgbotapi.InlineKeyboardMarkup {
	button := func(text, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(text, fmt.Sprintf("%s%s:%d", cbModerate, action, submissionID))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Approve", string(models.VerdictApprove)),
			button("❌ Reject", string(models.VerdictReject)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("✏️ Request fixes", string(models.VerdictNeedsFix)),
			button("👁️ View", viewAction),
		),
	)
	return &kb
}

func adminKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏳ Pending", cbAdmin+"pending"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", cbAdmin+"stats"),
		),
	)
	return &kb
}
