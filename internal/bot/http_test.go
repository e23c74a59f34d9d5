package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moderation/internal/models"
)

type fakeStats struct {
	stats models.Stats
	err   error
}

func (f fakeStats) Stats(ctx context.Context) (models.Stats, error) {
	return f.stats, f.err
}

func newTestServer(stats fakeStats, key string) *http.ServeMux {
	hs := NewHTTPServer(stats, key, zap.NewNop())
	hs.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	hs.RegisterRoutes(mux)
	return mux
}

func TestHTTPServer_Liveness(t *testing.T) {
	mux := newTestServer(fakeStats{}, "secret")

	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "OK", rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServer_AdminStats(t *testing.T) {
	stats := models.Stats{TotalUsers: 5, PendingSubmissions: 2, ApprovedSubmissions: 1, ApprovedUsers: 1, BannedUsers: 1}
	mux := newTestServer(fakeStats{stats: stats}, "secret")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-stats?key=secret", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(5), body["total_users"])
	assert.Equal(t, float64(2), body["pending_apps"])
	assert.Equal(t, float64(1), body["approved"])
	assert.Equal(t, float64(1), body["approved_users"])
	assert.Equal(t, float64(1), body["banned_users"])
	assert.Equal(t, "2024-03-10T12:00:00Z", body["timestamp"])
}

func TestHTTPServer_AdminStatsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		key  string
		url  string
	}{
		{name: "missing key", key: "secret", url: "/admin-stats"},
		{name: "wrong key", key: "secret", url: "/admin-stats?key=guess"},
		{name: "endpoint disabled", key: "", url: "/admin-stats?key="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestServer(fakeStats{}, tt.key)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestHTTPServer_AdminStatsFailure(t *testing.T) {
	mux := newTestServer(fakeStats{err: errors.New("disk gone")}, "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-stats?key=secret", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBot_WebhookHandler(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.dispatcher.Start()
	handler := b.WebhookHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	update := `{"update_id":1,"message":{"message_id":1,"from":{"id":100,"first_name":"Test"},` +
		`"chat":{"id":100,"type":"private"},"date":0,"text":"/start",` +
		`"entities":[{"type":"bot_command","offset":0,"length":6}]}}`
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(update)))
	assert.Equal(t, http.StatusOK, rec.Code)

	b.dispatcher.Stop()
	assert.Equal(t, textPendingWelcome, api.lastText(t, testUser))
}
