// ABOUTME: Inbound webhook endpoint wiring signature check, dedupe, session turns, and dispatch
// ABOUTME: Always acknowledges with empty TwiML past the signature gate so the gateway never retry-storms

package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/2389/textline/internal/dedupe"
	"github.com/2389/textline/internal/router"
	"github.com/2389/textline/internal/session"
	"github.com/2389/textline/internal/twilio"
)

// maxBodyBytes bounds the raw webhook body we are willing to read.
const maxBodyBytes = 64 * 1024

// ackBody is the gateway-formatted empty acknowledgment.
const ackBody = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Handler processes inbound webhook calls from the messaging gateway.
// One invocation per call; invocations for different senders are independent.
type Handler struct {
	secret      []byte
	cache       *dedupe.Cache
	sessions    session.Store
	dispatcher  *Dispatcher
	limiter     *SenderLimiter
	turnTimeout time.Duration
	logger      *slog.Logger
}

// NewHandler creates the webhook handler. secret is the shared signing secret
// for inbound call verification.
func NewHandler(secret []byte, cache *dedupe.Cache, sessions session.Store, dispatcher *Dispatcher, turnTimeout time.Duration) *Handler {
	return &Handler{
		secret:      secret,
		cache:       cache,
		sessions:    sessions,
		dispatcher:  dispatcher,
		limiter:     NewSenderLimiter(),
		turnTimeout: turnTimeout,
		logger:      slog.Default().With("component", "webhook"),
	}
}

// ServeHTTP handles one webhook call. Only a bad signature is rejected;
// every other outcome acknowledges with 200 so the gateway does not
// redeliver in a storm. State is never touched before the signature check.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		// Can't verify what we couldn't read; fail closed
		h.logger.Warn("webhook body read failed", "error", err)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if !twilio.VerifySignature(body, r.Header.Get(twilio.SignatureHeader), h.secret) {
		h.logger.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	h.process(r.Context(), body)
	h.ack(w)
}

// process runs the turn for a verified webhook body. All failures are logged
// and swallowed; the caller acknowledges regardless.
func (h *Handler) process(ctx context.Context, body []byte) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		h.logger.Warn("webhook body malformed", "error", err)
		return
	}

	msg := router.Message{
		ID:         values.Get("MessageSid"),
		Sender:     values.Get("From"),
		Body:       values.Get("Body"),
		ReceivedAt: time.Now(),
	}
	if msg.ID == "" || msg.Sender == "" {
		h.logger.Warn("webhook missing message id or sender")
		return
	}

	logger := h.logger.With("message_id", msg.ID, "sender", msg.Sender, "turn_id", uuid.New().String())

	// Known duplicates are free: they short-circuit before the rate limiter
	// so redeliveries never consume the sender's token budget.
	if h.cache.Seen(msg.ID) {
		logger.Debug("duplicate message acknowledged without reprocessing")
		return
	}

	// Rate limiting happens before the atomic dedupe mark so a dropped
	// message is not recorded as seen and its redelivery can still land.
	if !h.limiter.Allow(msg.Sender) {
		logger.Warn("sender rate limited, dropping message")
		return
	}

	if !h.cache.Observe(msg.ID) {
		logger.Debug("duplicate message acknowledged without reprocessing")
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, h.turnTimeout)
	defer cancel()

	if err := h.runTurn(turnCtx, msg, logger); err != nil {
		logger.Error("turn failed", "error", err)
	}
}

// runTurn executes load → decide → commit → dispatch for one fresh message.
// A commit conflict means a concurrent turn for the same sender won the race;
// the turn is recomputed once from the fresh state before giving up.
func (h *Handler) runTurn(ctx context.Context, msg router.Message, logger *slog.Logger) error {
	for attempt := 0; ; attempt++ {
		sess, err := h.sessions.Load(ctx, msg.Sender)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}

		next, reply := router.Decide(sess, msg)

		err = h.sessions.Commit(ctx, next)
		if errors.Is(err, session.ErrConflict) {
			if attempt == 0 {
				logger.Debug("commit conflict, recomputing turn")
				continue
			}
			return fmt.Errorf("commit conflict persisted after retry: %w", err)
		}
		if err != nil {
			return fmt.Errorf("committing session: %w", err)
		}

		logger.Debug("session committed", "state", next.State, "version", next.Version)

		// The session is committed; a dispatch failure must not roll it back.
		// The sender can re-ask and the state machine recovers on its own.
		if err := h.dispatcher.Send(ctx, reply); err != nil {
			logger.Error("reply dispatch failed", "error", err)
		}
		return nil
	}
}

// ack writes the gateway-required acknowledgment.
func (h *Handler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ackBody)
}
