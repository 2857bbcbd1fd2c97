// Package notifier delivers significant-change notifications, either to the
// log or to a webhook endpoint.
package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/models"
)

// Notifier delivers one change notification per significant check.
type Notifier interface {
	NotifyChange(ctx context.Context, source *models.Source, result models.ComparisonResult, preview string) error
}

// New builds the notifier selected by configuration.
func New(cfg config.NotifierConfig, log zerolog.Logger) Notifier {
	if cfg.Method == "webhook" && cfg.WebhookURL != "" {
		return NewWebhookNotifier(cfg.WebhookURL, log)
	}
	return NewLogNotifier(log)
}

// LogNotifier records changes in the structured log only.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) NotifyChange(_ context.Context, source *models.Source, result models.ComparisonResult, preview string) error {
	n.log.Info().
		Int64("source_id", source.ID).
		Str("name", source.Name).
		Str("url", source.URL).
		Float64("change_percent", result.ChangePercent).
		Str("description", result.Description).
		Str("preview", preview).
		Msg("Significant content change detected")
	return nil
}
