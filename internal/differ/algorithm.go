package differ

import (
	"github.com/sitevigil/sitevigil/internal/models"
)

// Algorithm computes an edit distance and change percentage between two
// content strings. Implementations share one LCS procedure and differ only
// in tokenization.
type Algorithm interface {
	// ComputeDiff compares old and new content and returns token-level
	// change statistics.
	ComputeDiff(oldContent, newContent string) models.DiffResult
	// Name identifies the algorithm for logging.
	Name() string
}

// New returns the algorithm for the given type. Unknown types fall back to
// line-based diffing.
func New(algorithmType models.DiffAlgorithmType) Algorithm {
	switch algorithmType {
	case models.DiffAlgorithmWord:
		return &WordAlgorithm{}
	case models.DiffAlgorithmCharacter:
		return &CharacterAlgorithm{}
	default:
		return &LineAlgorithm{}
	}
}
