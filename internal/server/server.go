package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"devotion-feed/internal/devotion"
	"devotion-feed/internal/feed"
	"devotion-feed/internal/logging"
	"devotion-feed/internal/models"
	"devotion-feed/internal/share"
)

const maxBodySize = 1 << 20

// Config configures the HTTP surface
type Config struct {
	Addr          string
	PageURL       string
	Ministry      string
	WebhookSecret string
}

// Server exposes the feed to the widget and accepts new broadcasts over a webhook
type Server struct {
	store  *feed.Store
	config Config
	server *http.Server
}

// WebhookPayload is the JSON body accepted by POST /api/devotion
type WebhookPayload struct {
	Message string `json:"message"`
}

// LatestResponse is returned by GET /api/devotion/latest
type LatestResponse struct {
	Devotion models.Devotion   `json:"devotion"`
	Share    models.ShareLinks `json:"share"`
}

// New creates a Server backed by store
func New(store *feed.Store, cfg Config) *Server {
	return &Server{
		store:  store,
		config: cfg,
	}
}

// Handler returns the routes served by the Server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devotions.json", s.handleFeed)
	mux.HandleFunc("GET /api/devotion/latest", s.handleLatest)
	mux.HandleFunc("POST /api/devotion/parse", s.handleParse)
	mux.HandleFunc("/api/devotion", s.handleWebhook)
	return mux
}

// Start serves HTTP until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logging.Log.Infof("HTTP server listening on %s", s.config.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logging.Log.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.Load()
	if err != nil {
		logging.Log.WithError(err).Error("Failed to load feed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Latest()
	if err != nil {
		logging.Log.WithError(err).Error("Failed to load latest devotion")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LatestResponse{
		Devotion: d,
		Share:    share.Links(d, s.config.PageURL, s.config.Ministry),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, devotion.Parse(string(body)))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if s.config.WebhookSecret != "" && !verifyHMAC(body, s.config.WebhookSecret, r.Header.Get("X-Signature-256")) {
		logging.Log.Warn("Webhook signature verification failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	entry, added, err := s.store.AddMessage(models.SourceWebhook, payload.Message, time.Now())
	switch {
	case errors.Is(err, feed.ErrEmptyMessage):
		http.Error(w, "Empty message", http.StatusBadRequest)
		return
	case err != nil:
		logging.Log.WithError(err).Error("Failed to store webhook devotion")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
		logging.Log.Infof("Stored webhook devotion %s", entry.ID)
	}
	writeJSON(w, status, entry)
}

// readBody reads at most maxBodySize bytes, answering 413 above that instead of truncating
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Bad Request", http.StatusBadRequest)
		}
		return nil, false
	}
	return body, true
}

// verifyHMAC checks an X-Signature-256 header of the form sha256=<hex>
func verifyHMAC(body []byte, secret, signature string) bool {
	hexSig, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}
	expected, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Log.WithError(err).Warn("Failed to write response")
	}
}
