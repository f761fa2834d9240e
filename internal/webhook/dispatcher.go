// ABOUTME: Reply dispatcher mapping router replies onto the outbound gateway client
// ABOUTME: One bounded inline retry; failures are surfaced, never rolled back into session state

package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/textline/internal/router"
)

// MessageSender is what the dispatcher needs from the gateway client.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}

// Dispatcher hands composed replies to the gateway client and records the
// outcome. Delivery retries beyond the single inline attempt are the
// gateway's own concern.
type Dispatcher struct {
	sender MessageSender
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher around a gateway client.
func NewDispatcher(sender MessageSender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: slog.Default().With("component", "dispatch"),
	}
}

// Send delivers one reply, retrying once immediately on failure.
func (d *Dispatcher) Send(ctx context.Context, reply router.Reply) error {
	sid, err := d.sender.SendMessage(ctx, reply.Recipient, reply.Body)
	if err != nil {
		d.logger.Warn("send failed, retrying once", "recipient", reply.Recipient, "error", err)

		sid, err = d.sender.SendMessage(ctx, reply.Recipient, reply.Body)
		if err != nil {
			return fmt.Errorf("sending reply: %w", err)
		}
	}

	d.logger.Debug("reply dispatched", "recipient", reply.Recipient, "sid", sid)
	return nil
}
