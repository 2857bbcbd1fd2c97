package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

const (
	webhookTimeout      = 15 * time.Second
	changeEmbedColor    = 15158332 // red
	previewFieldMaxSize = 1000
)

// WebhookNotifier posts a Discord-compatible embed payload to a webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhookNotifier(url string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		log:    log.With().Str("component", "webhook_notifier").Logger(),
	}
}

type webhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Fields      []webhookField `json:"fields,omitempty"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (n *WebhookNotifier) NotifyChange(ctx context.Context, source *models.Source, result models.ComparisonResult, preview string) error {
	name := source.Name
	if name == "" {
		name = source.URL
	}

	fields := []webhookField{
		{Name: "Change", Value: fmt.Sprintf("%.1f%%", result.ChangePercent), Inline: true},
		{Name: "Threshold", Value: fmt.Sprintf("%d%%", source.ThresholdPercent), Inline: true},
	}
	if preview != "" {
		if len(preview) > previewFieldMaxSize {
			preview = preview[:previewFieldMaxSize] + "..."
		}
		fields = append(fields, webhookField{Name: "Preview", Value: "```diff\n" + preview + "\n```"})
	}

	payload := webhookPayload{
		Username: "sitevigil",
		Embeds: []webhookEmbed{{
			Title:       fmt.Sprintf("Content changed: %s", name),
			Description: result.Description,
			URL:         source.URL,
			Color:       changeEmbedColor,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Fields:      fields,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errorx.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return errorx.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errorx.Wrap(err, "webhook delivery failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorx.NewHTTPError(resp.StatusCode, n.url)
	}

	n.log.Debug().Int64("source_id", source.ID).Int("status", resp.StatusCode).
		Msg("Change notification delivered")
	return nil
}
