// ABOUTME: HTTP handlers for the operator API: session listing and broadcast push
// ABOUTME: Bearer-token authenticated, JSON in and out

package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/textline/internal/session"
)

// Sender is what the broadcast handler needs from the gateway client.
type Sender interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}

// API exposes the authenticated operator endpoints.
type API struct {
	verifier *JWTVerifier
	sessions session.Store
	sender   Sender
	logger   *slog.Logger
}

// NewAPI creates the admin API.
func NewAPI(verifier *JWTVerifier, sessions session.Store, sender Sender) *API {
	return &API{
		verifier: verifier,
		sessions: sessions,
		sender:   sender,
		logger:   slog.Default().With("component", "admin"),
	}
}

// Register attaches the admin endpoints to a mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("/api/sessions", a.requireAuth(http.HandlerFunc(a.handleListSessions)))
	mux.Handle("/api/broadcast", a.requireAuth(http.HandlerFunc(a.handleBroadcast)))
}

// SessionResponse is one session in the GET /api/sessions listing.
type SessionResponse struct {
	Sender       string `json:"sender"`
	State        string `json:"state"`
	LastActivity string `json:"last_activity"`
	Version      int64  `json:"version"`
}

// BroadcastRequest is the JSON body for POST /api/broadcast.
type BroadcastRequest struct {
	Recipients []string `json:"recipients"`
	Body       string   `json:"body"`
}

// BroadcastResponse reports per-recipient outcomes for a broadcast.
type BroadcastResponse struct {
	BroadcastID string            `json:"broadcast_id"`
	Sent        int               `json:"sent"`
	Failed      map[string]string `json:"failed,omitempty"`
}

// requireAuth wraps a handler with bearer-token verification.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := a.verifier.Verify(token)
		if err != nil {
			a.jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		a.logger.Debug("admin request authorized", "subject", subject, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// handleListSessions handles GET /api/sessions.
func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := a.sessions.List(r.Context(), limit)
	if err != nil {
		a.logger.Error("listing sessions failed", "error", err)
		a.jsonError(w, http.StatusInternalServerError, "listing sessions failed")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			Sender:       s.Sender,
			State:        string(s.State),
			LastActivity: s.LastActivity.UTC().Format(time.RFC3339),
			Version:      s.Version,
		})
	}

	a.writeJSON(w, http.StatusOK, resp)
}

// handleBroadcast handles POST /api/broadcast: push one message to a list of
// recipients. Failures are reported per recipient, not aborted on.
func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Recipients) == 0 || req.Body == "" {
		a.jsonError(w, http.StatusBadRequest, "recipients and body are required")
		return
	}

	broadcastID := uuid.New().String()
	logger := a.logger.With("broadcast_id", broadcastID)

	resp := BroadcastResponse{BroadcastID: broadcastID, Failed: make(map[string]string)}
	for _, recipient := range req.Recipients {
		if _, err := a.sender.SendMessage(r.Context(), recipient, req.Body); err != nil {
			logger.Warn("broadcast send failed", "recipient", recipient, "error", err)
			resp.Failed[recipient] = err.Error()
			continue
		}
		resp.Sent++
	}
	if len(resp.Failed) == 0 {
		resp.Failed = nil
	}

	logger.Info("broadcast complete", "sent", resp.Sent, "failed", len(resp.Failed))
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("encoding response failed", "error", err)
	}
}

func (a *API) jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
