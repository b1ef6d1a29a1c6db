package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxDiagnosticBytes = 16 << 10

// BrevoClient sends transactional email through the Brevo API.
type BrevoClient struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	senderName  string
	senderEmail string
}

// NewBrevoClient creates a client with a fixed sender identity.
func NewBrevoClient(apiURL, apiKey, senderName, senderEmail string, timeout time.Duration) *BrevoClient {
	return &BrevoClient{
		httpClient:  &http.Client{Timeout: timeout},
		apiURL:      apiURL,
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
	}
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type brevoPayload struct {
	Sender      brevoParty        `json:"sender"`
	To          []brevoParty      `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// Send posts the message to Brevo. The attachment is base64-encoded as the
// API requires for binary content. Only a 201 response counts as accepted;
// anything else surfaces the provider's diagnostic text.
func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	payload := brevoPayload{
		Sender:      brevoParty{Name: c.senderName, Email: c.senderEmail},
		To:          []brevoParty{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: "<html><body>" + msg.HTMLBody + "</body></html>",
	}
	if len(msg.Attachment.Content) > 0 {
		payload.Attachment = []brevoAttachment{{
			Name:    msg.Attachment.Name,
			Content: base64.StdEncoding.EncodeToString(msg.Attachment.Content),
		}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBytes))
		return fmt.Errorf("provider rejected send: status %d: %s", resp.StatusCode, bytes.TrimSpace(diag))
	}

	return nil
}
