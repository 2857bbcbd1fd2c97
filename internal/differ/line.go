package differ

import (
	"strings"

	"github.com/sitevigil/sitevigil/internal/models"
)

// LineAlgorithm diffs content line by line. It is the default and the
// cheapest of the three algorithms for typical page text.
type LineAlgorithm struct{}

func (a *LineAlgorithm) Name() string { return "line" }

func (a *LineAlgorithm) ComputeDiff(oldContent, newContent string) models.DiffResult {
	return diffTokens(splitLines(oldContent), splitLines(newContent), maxLineTokens, "lines")
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}
