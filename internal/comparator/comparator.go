// Package comparator turns two content snapshots into a bounded change
// percentage under the source's configured comparison mode.
package comparator

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/differ"
	"github.com/sitevigil/sitevigil/internal/models"
)

// Comparator performs mode-aware content comparison. It is stateless apart
// from its logger and safe for concurrent use.
type Comparator struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Comparator {
	return &Comparator{
		log: log.With().Str("component", "comparator").Logger(),
	}
}

// Compare evaluates newContent against oldContent per the source's
// comparison mode. A nil slice means the side is absent entirely, which is
// distinct from empty content.
func (c *Comparator) Compare(oldContent, newContent []byte, source *models.Source) models.ComparisonResult {
	if oldContent == nil && newContent == nil {
		return models.NoChange(0)
	}
	if oldContent == nil {
		return models.Changed(100, 0, len(newContent), "Content appeared")
	}
	if newContent == nil {
		return models.Changed(100, len(oldContent), 0, "Content disappeared")
	}
	if bytes.Equal(oldContent, newContent) {
		return models.NoChange(len(newContent))
	}

	oldText, newText, err := c.preprocess(string(oldContent), string(newContent), source)
	if err != nil {
		// Parse failures degrade to full-content comparison instead of
		// failing the check.
		c.log.Warn().Err(err).Int64("source_id", source.ID).
			Str("mode", string(source.ComparisonMode)).
			Msg("Preprocessing failed, falling back to full content comparison")
		oldText, newText = string(oldContent), string(newContent)
	}

	if oldText == newText {
		// Differences were confined to filtered-out markup.
		return models.NoChange(len(newContent))
	}

	if source.ComparisonMode == models.ComparisonModeSelector && err == nil {
		if result, terminal := c.selectorEmptyResult(oldText, newText, oldContent, newContent, source); terminal {
			return result
		}
	}

	alg := differ.New(source.DiffAlgorithm)
	diff := alg.ComputeDiff(oldText, newText)

	c.log.Debug().Int64("source_id", source.ID).
		Str("algorithm", alg.Name()).
		Float64("change_percent", diff.ChangePercent).
		Msg("Content diff computed")

	description := diff.Description
	if source.ComparisonMode == models.ComparisonModeSelector && err == nil {
		selector := source.IncludeSelector
		if selector == "" {
			selector = "body *"
		}
		description = fmt.Sprintf("%s within selector %q", description, selector)
	}

	return models.Changed(diff.ChangePercent, len(oldContent), len(newContent), description)
}

func (c *Comparator) preprocess(oldContent, newContent string, source *models.Source) (string, string, error) {
	switch source.ComparisonMode {
	case models.ComparisonModeTextOnly:
		oldText, err := extractText(oldContent, source.MinTextLength, source.MinWordLength)
		if err != nil {
			return "", "", err
		}
		newText, err := extractText(newContent, source.MinTextLength, source.MinWordLength)
		if err != nil {
			return "", "", err
		}
		return oldText, newText, nil

	case models.ComparisonModeSelector:
		oldText, err := selectContent(oldContent, source.IncludeSelector, source.ExcludeSelector)
		if err != nil {
			return "", "", err
		}
		newText, err := selectContent(newContent, source.IncludeSelector, source.ExcludeSelector)
		if err != nil {
			return "", "", err
		}
		return oldText, newText, nil

	default:
		return oldContent, newContent, nil
	}
}

// selectorEmptyResult handles the case where one side's selector matched
// nothing at all: report a full appearance or disappearance naming the
// selector configuration.
func (c *Comparator) selectorEmptyResult(oldText, newText string, oldContent, newContent []byte, source *models.Source) (models.ComparisonResult, bool) {
	selector := source.IncludeSelector
	if selector == "" {
		selector = "body *"
	}

	switch {
	case oldText == "" && newText != "":
		desc := fmt.Sprintf("Content matching selector %q appeared", selector)
		return models.Changed(100, len(oldContent), len(newContent), desc), true
	case oldText != "" && newText == "":
		desc := fmt.Sprintf("Content matching selector %q disappeared", selector)
		return models.Changed(100, len(oldContent), len(newContent), desc), true
	}
	return models.ComparisonResult{}, false
}
