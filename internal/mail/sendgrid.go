package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendGridSender delivers mail through the SendGrid v3 HTTP API.
type SendGridSender struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

// NewSendGridSender creates a SendGrid transport. A nil client gets a
// default client with a 10s timeout.
func NewSendGridSender(url, apiKey, from string, client *http.Client) *SendGridSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SendGridSender{url: url, apiKey: apiKey, from: from, client: client}
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// Send posts one message. Any non-2xx response is an error.
func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: to}}}},
		From:             sendGridAddress{Email: s.from},
		Subject:          subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid send to %s: status %d: %s", to, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
