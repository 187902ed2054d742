// Package slack delivers run notifications to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"techpost/internal/ports"
)

// Notifier sends post-success and error notifications.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type attachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

type attachment struct {
	Color  string            `json:"color,omitempty"`
	Title  string            `json:"title,omitempty"`
	Text   string            `json:"text,omitempty"`
	Fields []attachmentField `json:"fields,omitempty"`
}

type payload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// NotifyPostSuccess announces a published article.
func (n *Notifier) NotifyPostSuccess(ctx context.Context, title, url, tweetID string, score float64) error {
	return n.send(ctx, payload{
		Text: "Posted a new article!",
		Attachments: []attachment{{
			Color: "good",
			Title: title,
			Text:  url,
			Fields: []attachmentField{
				{Title: "Score", Value: strconv.FormatFloat(score, 'f', -1, 64), Short: true},
				{Title: "Tweet ID", Value: tweetID, Short: true},
			},
		}},
	})
}

// NotifyError reports a failed run.
func (n *Notifier) NotifyError(ctx context.Context, message string) error {
	return n.send(ctx, payload{
		Text:        "Pipeline run failed",
		Attachments: []attachment{{Color: "danger", Text: message}},
	})
}

func (n *Notifier) send(ctx context.Context, p payload) error {
	if n.webhookURL == "" {
		return fmt.Errorf("slack notifier misconfigured: missing webhook url")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack error: %s", resp.Status)
	}
	return nil
}
