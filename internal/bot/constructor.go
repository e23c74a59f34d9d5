package bot

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"moderation/internal/moderation"
)

// queueSize bounds the number of updates waiting for a worker
const queueSize = 256

// pollTimeout is the long-poll wait requested from getUpdates, in seconds
const pollTimeout = 60

// pollSlack covers the round trip on top of the server-side wait
const pollSlack = 10 * time.Second

// splitClient keeps the getUpdates long poll off the notification deadline
type splitClient struct {
	poll *http.Client
	send *http.Client
}

func (c splitClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/getUpdates") {
		return c.poll.Do(req)
	}
	return c.send.Do(req)
}

// NewAPI creates the Telegram client. Outbound calls are bounded by timeout;
// the getUpdates long poll gets its own, longer deadline.
func NewAPI(token string, timeout time.Duration, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	return newAPI(token, tgbotapi.APIEndpoint, timeout, pollTimeout*time.Second, logger)
}

func newAPI(token, endpoint string, timeout, pollWait time.Duration, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	client := splitClient{
		poll: &http.Client{Timeout: pollWait + pollSlack},
		send: &http.Client{Timeout: timeout},
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot API created", zap.String("bot_username", api.Self.UserName))
	return api, nil
}

// NewBot creates a new Telegram bot handling updates with the given number of workers
func NewBot(api API, service *moderation.Service, workers int, logger *zap.Logger) *Bot {
	b := &Bot{
		api:     api,
		service: service,
		logger:  logger,
	}
	b.dispatcher = NewDispatcher(workers, queueSize, b.handleUpdate, logger)
	return b
}
