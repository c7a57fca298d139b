// Package whatsapp talks to the HTTP gateway that relays WhatsApp messages.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var countryPrefix = regexp.MustCompile(`^\+351\s?`)

// ErrMissingFields is returned when recipient or text is empty.
var ErrMissingFields = errors.New("recipient and message are required")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Message is one outgoing message. ScheduledDate (YYYY-MM-DD) and
// ScheduledTime (HH:MM) are optional; the time is ignored without a date.
type Message struct {
	Recipient     string `json:"recipient"`
	Text          string `json:"message"`
	ScheduledDate string `json:"scheduledDate,omitempty"`
	ScheduledTime string `json:"scheduledTime,omitempty"`
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NormalizeRecipient strips the Portuguese country prefix and inner spaces.
func NormalizeRecipient(number string) string {
	n := countryPrefix.ReplaceAllString(strings.TrimSpace(number), "")
	return strings.ReplaceAll(n, " ", "")
}

// Send delivers msg through the gateway and returns its decoded JSON reply.
func (c *Client) Send(ctx context.Context, msg Message) (map[string]interface{}, error) {
	if strings.TrimSpace(msg.Recipient) == "" || strings.TrimSpace(msg.Text) == "" {
		return nil, ErrMissingFields
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}

	q := endpoint.Query()
	q.Set("token", c.token)
	q.Set("recipient", NormalizeRecipient(msg.Recipient))
	q.Set("message", msg.Text)
	if msg.ScheduledDate != "" {
		q.Set("date", msg.ScheduledDate)
		if msg.ScheduledTime != "" {
			q.Set("time", msg.ScheduledTime)
		}
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var payload map[string]interface{}
	_ = json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := resp.Status
		if m, ok := payload["message"].(string); ok && m != "" {
			reason = m
		}
		return nil, fmt.Errorf("gateway rejected message: %s", reason)
	}

	return payload, nil
}
