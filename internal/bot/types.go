package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/moderation"
)

// API is the subset of the Telegram client the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api        API
	service    *moderation.Service
	dispatcher *Dispatcher
	logger     *zap.Logger
}
