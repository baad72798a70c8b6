package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// GmailSink delivers summaries through the Gmail REST send endpoint.
type GmailSink struct {
	endpoint string
	tokens   TokenSource
	client   *http.Client
}

var _ EmailSink = (*GmailSink)(nil)

// NewGmailSink creates an email sink posting to the given messages.send URL.
func NewGmailSink(endpoint string, tokens TokenSource, client *http.Client) *GmailSink {
	if client == nil {
		client = &http.Client{}
	}
	return &GmailSink{endpoint: endpoint, tokens: tokens, client: client}
}

// SendEmail builds an RFC 2822 message and submits it base64url-encoded, the
// shape the Gmail API requires.
func (g *GmailSink) SendEmail(ctx context.Context, recipient, subject, body string) error {
	message := buildMessage(recipient, subject, body)
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(message)),
	})
	if err != nil {
		return fmt.Errorf("encode gmail payload: %w", err)
	}

	token, err := g.tokens()
	if err != nil {
		return fmt.Errorf("gmail token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gmail request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send gmail message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gmail returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildMessage(recipient, subject, body string) string {
	var builder strings.Builder
	builder.WriteString("To: " + recipient + "\r\n")
	builder.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	builder.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(body)
	return builder.String()
}
