package bot

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/telegram-webhook"

// Start starts the bot in polling mode and blocks until Stop is called
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	b.dispatcher.Start()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for update := range updates {
		b.push(update)
	}
	return nil
}

// StartWebhook sets up the bot to receive updates via webhook
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + WebhookPath)
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40
	webhookConfig.AllowedUpdates = []string{"message", "callback_query"}

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	b.dispatcher.Start()
	b.logger.Info("Bot configured for webhook mode")
	return nil
}

// WebhookHandler decodes updates posted by Telegram and queues them
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Telegram only needs a quick acknowledgement; handling happens on the workers
		b.enqueue(update)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) enqueue(update tgbotapi.Update) {
	if err := b.dispatcher.Enqueue(update); err != nil {
		b.logger.Warn("Update not queued", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// push waits for queue space so a slow backlog pauses polling instead of losing updates
func (b *Bot) push(update tgbotapi.Update) {
	if err := b.dispatcher.Push(update); err != nil {
		b.logger.Warn("Update not queued", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// Stop stops polling and waits for in-flight updates
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.dispatcher.Stop()
	b.logger.Info("Bot stopped")
}
