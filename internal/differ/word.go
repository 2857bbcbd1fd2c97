package differ

import (
	"strings"

	"github.com/sitevigil/sitevigil/internal/models"
)

// WordAlgorithm diffs content word by word, splitting on any whitespace.
// It is more sensitive than line diffing when edits happen inside long
// paragraphs.
type WordAlgorithm struct{}

func (a *WordAlgorithm) Name() string { return "word" }

func (a *WordAlgorithm) ComputeDiff(oldContent, newContent string) models.DiffResult {
	return diffTokens(strings.Fields(oldContent), strings.Fields(newContent), maxWordTokens, "words")
}
