package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type MailgunConfig struct {
	BaseURL string
	Domain  string
	APIKey  string
	From    string
}

// MailgunTransport sends through the Mailgun messages API.
type MailgunTransport struct {
	cfg    MailgunConfig
	client *http.Client
}

func NewMailgunTransport(cfg MailgunConfig, client *http.Client) *MailgunTransport {
	if client == nil {
		client = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MailgunTransport{cfg: cfg, client: client}
}

func (t *MailgunTransport) Deliver(ctx context.Context, e Email) error {
	form := url.Values{}
	form.Set("from", t.cfg.From)
	form.Set("to", e.To)
	form.Set("subject", e.Subject)
	form.Set("text", e.Body)

	endpoint := fmt.Sprintf("%s/%s/messages", t.cfg.BaseURL, t.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build mailgun request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailgun responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
