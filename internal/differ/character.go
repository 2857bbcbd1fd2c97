package differ

import (
	"github.com/sitevigil/sitevigil/internal/models"
)

// CharacterAlgorithm diffs content rune by rune. It is the most precise of
// the three algorithms and the most expensive, so it samples aggressively on
// large inputs.
type CharacterAlgorithm struct{}

func (a *CharacterAlgorithm) Name() string { return "character" }

func (a *CharacterAlgorithm) ComputeDiff(oldContent, newContent string) models.DiffResult {
	return diffTokens(splitRunes(oldContent), splitRunes(newContent), maxCharacterTokens, "characters")
}

func splitRunes(content string) []string {
	if content == "" {
		return nil
	}
	tokens := make([]string, 0, len(content))
	for _, r := range content {
		tokens = append(tokens, string(r))
	}
	return tokens
}
