// ABOUTME: REST client for the messaging gateway's send-message API
// ABOUTME: Form-encoded POST with basic auth, returns the created message SID

package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client sends outbound messages through the gateway's REST API.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client. baseURL is the API root without a
// trailing slash, e.g. "https://api.twilio.com".
func NewClient(accountSID, authToken, fromNumber, baseURL string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default().With("component", "twilio"),
	}
}

// messageResponse is the subset of the gateway's create-message response we use.
type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error detail on failure responses
}

// SendMessage posts one outbound message and returns the created message SID.
// Delivery retries past this call are the gateway's concern, not ours.
func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("reading send response: %w", err)
	}

	var msg messageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decoding send response: %w", err)
	}

	if resp.StatusCode >= 300 {
		detail := msg.Message
		if detail == "" {
			detail = strings.TrimSpace(string(respBody))
		}
		return "", fmt.Errorf("gateway send failed: status %d: %s", resp.StatusCode, detail)
	}

	c.logger.Debug("message sent", "to", to, "sid", msg.SID)
	return msg.SID, nil
}
