package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moderation/internal/models"
	"moderation/internal/moderation"
	"moderation/internal/storage/stubs"
)

const (
	testAdmin = int64(1)
	testUser  = int64(100)
)

// fakeAPI records every outbound call instead of talking to Telegram
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	sendErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) GetWebhookInfo() (tgbotapi.WebhookInfo, error) {
	return tgbotapi.WebhookInfo{}, nil
}

// texts returns the text messages sent to chatID, in order
func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	texts := f.texts(chatID)
	require.NotEmpty(t, texts, "no message sent to %d", chatID)
	return texts[len(texts)-1]
}

func (f *fakeAPI) lastAnswer(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	t.Fatal("no callback answered")
	return tgbotapi.CallbackConfig{}
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeAPI) photos(chatID int64) []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok && p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *moderation.Service) {
	t.Helper()
	api := newFakeAPI()
	admins := []int64{testAdmin}
	svc := moderation.New(stubs.NewMockDB(), moderation.Options{
		Admins:   admins,
		Cooldown: 5 * time.Minute,
		Notifier: NewNotifier(api, admins, zap.NewNop()),
		Audit:    stubs.NewAuditLog(),
		Logger:   zap.NewNop(),
	})
	return NewBot(api, svc, 1, zap.NewNop()), api, svc
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

func command(from int64, text string) tgbotapi.Update {
	length := len(text)
	if i := strings.Index(text, " "); i > 0 {
		length = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "tester", FirstName: "Test"},
		Chat:      privateChat(from),
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from, UserName: "tester", FirstName: "Test"},
		Message: &tgbotapi.Message{MessageID: 42, Chat: privateChat(from)},
		Data:    data,
	}}
}

func photo(from int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: from, UserName: "tester"},
		Chat:      privateChat(from),
		Photo:     []tgbotapi.PhotoSize{{FileID: fileID + "-small"}, {FileID: fileID}},
	}}
}

func activeID(t *testing.T, svc *moderation.Service, userID int64) int64 {
	t.Helper()
	view, err := svc.ActiveSubmission(context.Background(), userID)
	require.NoError(t, err)
	return view.Submission.ID
}

func TestBot_SubmissionFlow(t *testing.T) {
	b, api, svc := newTestBot(t)

	b.handleUpdate(command(testUser, "/start"))
	assert.Equal(t, textPendingWelcome, api.lastText(t, testUser))
	assert.Contains(t, api.lastText(t, testAdmin), "New user: 100")

	b.handleUpdate(callback(testUser, cbCreate))
	assert.Equal(t, textChooseSection, api.lastText(t, testUser))

	b.handleUpdate(callback(testUser, cbSection+"garage"))
	id := activeID(t, svc, testUser)
	assert.Contains(t, api.lastText(t, testUser), "created. Section: Garage")
	assert.Contains(t, api.lastText(t, testAdmin), "🆕 Submission #"+itoa(id)+" created")

	// media before choosing a category is refused
	b.handleUpdate(photo(testUser, "p0"))
	assert.Equal(t, textSendMediaFirst, api.lastText(t, testUser))

	b.handleUpdate(callback(testUser, mediaKeyboardAdd(models.CategoryNormal, id)))
	assert.Contains(t, api.lastText(t, testUser), "Send the file(s) for normal")
	b.handleUpdate(photo(testUser, "p1"))
	assert.Contains(t, api.lastText(t, testUser), "Normal: 1, Intimate: 0")

	b.handleUpdate(callback(testUser, cbSubmit+itoa(id)))
	answer := api.lastAnswer(t)
	assert.True(t, answer.ShowAlert)
	assert.Contains(t, answer.Text, "Missing: intimate")

	b.handleUpdate(callback(testUser, mediaKeyboardAdd(models.CategoryIntimate, id)))
	b.handleUpdate(photo(testUser, "p2"))
	assert.Contains(t, api.lastText(t, testUser), "Normal: 1, Intimate: 1")

	b.handleUpdate(callback(testUser, cbSubmit+itoa(id)))
	assert.Contains(t, api.lastText(t, testUser), "was sent for moderation")
	assert.Contains(t, api.lastText(t, testAdmin), "📨 Submission #"+itoa(id))

	b.handleUpdate(callback(testAdmin, cbModerate+"approve:"+itoa(id)))
	edits := api.edits()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1].Text, "approved by @tester")
	assert.Contains(t, api.lastText(t, testUser), "was approved")

	status, err := svc.GetStatus(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, status)

	b.handleUpdate(command(testUser, "/start"))
	assert.Equal(t, textApprovedWelcome, api.lastText(t, testUser))
}

func mediaKeyboardAdd(c models.Category, id int64) string {
	return cbAdd + string(c) + ":" + itoa(id)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestBot_ModerationRequiresAdmin(t *testing.T) {
	b, api, svc := newTestBot(t)
	b.handleUpdate(command(testUser, "/start"))
	b.handleUpdate(callback(testUser, cbSection+"couples"))
	id := activeID(t, svc, testUser)

	b.handleUpdate(callback(testUser, cbModerate+"approve:"+itoa(id)))
	answer := api.lastAnswer(t)
	assert.Equal(t, textAccessDenied, answer.Text)

	b.handleUpdate(command(testUser, "/admin"))
	assert.Equal(t, textAccessDenied, api.lastText(t, testUser))
}

func TestBot_ViewReplaysMedia(t *testing.T) {
	b, api, svc := newTestBot(t)
	b.handleUpdate(command(testUser, "/start"))
	b.handleUpdate(callback(testUser, cbSection+"boudoir"))
	id := activeID(t, svc, testUser)
	b.handleUpdate(callback(testUser, mediaKeyboardAdd(models.CategoryNormal, id)))
	b.handleUpdate(photo(testUser, "first"))
	b.handleUpdate(photo(testUser, "second"))

	b.handleUpdate(callback(testAdmin, cbModerate+viewAction+":"+itoa(id)))

	texts := api.texts(testAdmin)
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Contains(t, texts[len(texts)-2], "📋 Submission #"+itoa(id))
	assert.Contains(t, texts[len(texts)-1], "Decision for #"+itoa(id))

	photos := api.photos(testAdmin)
	require.Len(t, photos, 2)
	assert.Equal(t, tgbotapi.FileID("first"), photos[0].File)
	assert.Equal(t, tgbotapi.FileID("second"), photos[1].File)
}

func TestBot_RejectBans(t *testing.T) {
	b, api, svc := newTestBot(t)
	b.handleUpdate(command(testUser, "/start"))
	b.handleUpdate(callback(testUser, cbSection+"garage"))
	id := activeID(t, svc, testUser)
	for _, c := range models.MandatoryCategories {
		b.handleUpdate(callback(testUser, mediaKeyboardAdd(c, id)))
		b.handleUpdate(photo(testUser, string(c)))
	}
	b.handleUpdate(callback(testUser, cbSubmit+itoa(id)))

	b.handleUpdate(callback(testAdmin, cbModerate+"reject:"+itoa(id)))
	assert.Contains(t, api.lastText(t, testUser), "You are banned")

	// a second decision on the same submission is refused
	b.handleUpdate(callback(testAdmin, cbModerate+"approve:"+itoa(id)))
	assert.Equal(t, textNotEditable, api.lastAnswer(t).Text)

	b.handleUpdate(command(testUser, "/start"))
	assert.Equal(t, textBanned, api.lastText(t, testUser))

	b.handleUpdate(callback(testUser, cbCreate))
	assert.Equal(t, textBanned, api.lastAnswer(t).Text)
}

func TestBot_Commands(t *testing.T) {
	b, api, svc := newTestBot(t)

	b.handleUpdate(command(testUser, "/my"))
	assert.Equal(t, textNoSubmissions, api.lastText(t, testUser))

	b.handleUpdate(command(testUser, "/status"))
	assert.Contains(t, api.lastText(t, testUser), "Active submission: none")

	b.handleUpdate(command(testUser, "/reset"))
	assert.Equal(t, textNoActive, api.lastText(t, testUser))

	b.handleUpdate(callback(testUser, cbSection+"couples"))
	id := activeID(t, svc, testUser)

	b.handleUpdate(command(testUser, "/status"))
	assert.Contains(t, api.lastText(t, testUser), "Active submission: #"+itoa(id))

	b.handleUpdate(command(testUser, "/my"))
	assert.Contains(t, api.lastText(t, testUser), "#"+itoa(id)+" - Couples - pending")

	b.handleUpdate(command(testUser, "/reset"))
	assert.Equal(t, textResetDone, api.lastText(t, testUser))

	b.handleUpdate(command(testUser, "/dance"))
	assert.Equal(t, textUnknownCommand, api.lastText(t, testUser))
}

func TestBot_AdminCommands(t *testing.T) {
	b, api, svc := newTestBot(t)

	b.handleUpdate(command(testAdmin, "/admin"))
	assert.Equal(t, textAdminPanel, api.lastText(t, testAdmin))

	b.handleUpdate(callback(testAdmin, cbAdmin+"pending"))
	assert.Equal(t, textNoPending, api.lastText(t, testAdmin))

	b.handleUpdate(command(testAdmin, "/history"))
	assert.Equal(t, textHistoryUsage, api.lastText(t, testAdmin))

	b.handleUpdate(command(testAdmin, "/history 7"))
	assert.Equal(t, textHistoryEmpty, api.lastText(t, testAdmin))

	b.handleUpdate(command(testUser, "/start"))
	b.handleUpdate(callback(testUser, cbSection+"garage"))
	id := activeID(t, svc, testUser)
	for _, c := range models.MandatoryCategories {
		b.handleUpdate(callback(testUser, mediaKeyboardAdd(c, id)))
		b.handleUpdate(photo(testUser, string(c)))
	}
	b.handleUpdate(callback(testUser, cbSubmit+itoa(id)))

	b.handleUpdate(callback(testAdmin, cbAdmin+"pending"))
	assert.Contains(t, api.lastText(t, testAdmin), "#"+itoa(id)+" - 100 (@tester) - Garage")

	b.handleUpdate(callback(testAdmin, cbModerate+"needs_fix:"+itoa(id)))
	assert.Contains(t, api.lastText(t, testUser), "needs fixes")

	// buttons left on other copies of the notification stay inert until resubmission
	b.handleUpdate(callback(testAdmin, cbModerate+"reject:"+itoa(id)))
	assert.Equal(t, textAwaitingFixes, api.lastAnswer(t).Text)

	b.handleUpdate(callback(testAdmin, cbModerate+viewAction+":"+itoa(id)))
	assert.NotContains(t, api.lastText(t, testAdmin), "Decision for")

	b.handleUpdate(command(testAdmin, "/history "+itoa(id)))
	assert.Contains(t, api.lastText(t, testAdmin), "needs_fix by 1")

	b.handleUpdate(callback(testAdmin, cbAdmin+"stats"))
	assert.Contains(t, api.lastText(t, testAdmin), "Users: 2")

	status, err := svc.GetStatus(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)
}

func TestBot_IgnoresGroupChats(t *testing.T) {
	b, api, _ := newTestBot(t)
	update := command(testUser, "/start")
	update.Message.Chat = &tgbotapi.Chat{ID: -500, Type: "group"}

	b.handleUpdate(update)
	assert.Empty(t, api.texts(-500))
	assert.Empty(t, api.texts(testAdmin))
}

func TestBot_PanicRecovery(t *testing.T) {
	api := newFakeAPI()
	b := &Bot{api: api, logger: zap.NewNop()}

	// service is nil: the handler panics and the user gets the generic error
	assert.NotPanics(t, func() {
		b.handleUpdate(command(testUser, "/start"))
	})
	assert.Equal(t, textGenericError, api.lastText(t, testUser))
}

func TestExtractMedia(t *testing.T) {
	tests := []struct {
		name    string
		message *tgbotapi.Message
		kind    models.MediaKind
		handle  string
		ok      bool
	}{
		{
			name:    "largest photo",
			message: &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "s"}, {FileID: "l"}}},
			kind:    models.KindPhoto,
			handle:  "l",
			ok:      true,
		},
		{
			name:    "video",
			message: &tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v"}},
			kind:    models.KindVideo,
			handle:  "v",
			ok:      true,
		},
		{
			name: "animation wins over preview photo",
			message: &tgbotapi.Message{
				Animation: &tgbotapi.Animation{FileID: "a"},
				Photo:     []tgbotapi.PhotoSize{{FileID: "thumb"}},
			},
			kind:   models.KindAnimation,
			handle: "a",
			ok:     true,
		},
		{
			name:    "text",
			message: &tgbotapi.Message{Text: "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, handle, ok := extractMedia(tt.message)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.handle, handle)
		})
	}
}

func TestSplitAction(t *testing.T) {
	action, id, ok := splitAction("needs_fix:12")
	assert.True(t, ok)
	assert.Equal(t, "needs_fix", action)
	assert.Equal(t, int64(12), id)

	_, _, ok = splitAction("approve")
	assert.False(t, ok)
	_, _, ok = splitAction("approve:x")
	assert.False(t, ok)
}
