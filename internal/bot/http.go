package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"moderation/internal/storage"
)

// HTTPServer serves the liveness and stats endpoints. It never writes.
type HTTPServer struct {
	stats  storage.StatsReader
	apiKey string
	now    func() time.Time
	logger *zap.Logger
}

// NewHTTPServer creates the health surface; an empty apiKey disables /admin-stats
func NewHTTPServer(stats storage.StatsReader, apiKey string, logger *zap.Logger) *HTTPServer {
	return &HTTPServer{
		stats:  stats,
		apiKey: apiKey,
		now:    time.Now,
		logger: logger,
	}
}

// RegisterRoutes registers the health routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", hs.handleRoot)
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/admin-stats", hs.handleAdminStats)
}

func (hs *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	hs.handleHealth(w, r)
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

type statsResponse struct {
	TotalUsers          int    `json:"total_users"`
	PendingSubmissions  int    `json:"pending_apps"`
	ApprovedSubmissions int    `json:"approved"`
	ApprovedUsers       int    `json:"approved_users"`
	BannedUsers         int    `json:"banned_users"`
	Timestamp           string `json:"timestamp"`
}

func (hs *HTTPServer) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if hs.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(hs.apiKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	stats, err := hs.stats.Stats(r.Context())
	if err != nil {
		hs.logger.Error("Failed to read stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:          stats.TotalUsers,
		PendingSubmissions:  stats.PendingSubmissions,
		ApprovedSubmissions: stats.ApprovedSubmissions,
		ApprovedUsers:       stats.ApprovedUsers,
		BannedUsers:         stats.BannedUsers,
		Timestamp:           hs.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
