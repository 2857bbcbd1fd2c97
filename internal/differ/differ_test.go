package differ

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitevigil/sitevigil/internal/models"
)

func TestNewSelectsAlgorithm(t *testing.T) {
	assert.Equal(t, "line", New(models.DiffAlgorithmLine).Name())
	assert.Equal(t, "word", New(models.DiffAlgorithmWord).Name())
	assert.Equal(t, "character", New(models.DiffAlgorithmCharacter).Name())
	assert.Equal(t, "line", New(models.DiffAlgorithmType("bogus")).Name())
}

func TestIdenticalInputsYieldZeroChange(t *testing.T) {
	content := "line one\nline two\nline three"
	for _, alg := range []Algorithm{&LineAlgorithm{}, &WordAlgorithm{}, &CharacterAlgorithm{}} {
		result := alg.ComputeDiff(content, content)
		assert.Zero(t, result.ChangePercent, alg.Name())
		assert.Zero(t, result.Added, alg.Name())
		assert.Zero(t, result.Removed, alg.Name())
	}
}

func TestLineAlgorithmCountsChanges(t *testing.T) {
	oldContent := "alpha\nbeta\ngamma"
	newContent := "alpha\ndelta\ngamma"

	result := (&LineAlgorithm{}).ComputeDiff(oldContent, newContent)

	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 2, result.Unchanged)
	assert.Equal(t, 3, result.TotalOld)
	assert.Equal(t, 3, result.TotalNew)
	// 100 * (1+1) / (3+3)
	assert.InDelta(t, 33.33, result.ChangePercent, 0.01)
	assert.Contains(t, result.Description, "1 lines added")
	assert.Contains(t, result.Description, "1 lines removed")
}

func TestChangePercentFormula(t *testing.T) {
	tests := []struct {
		name       string
		oldContent string
		newContent string
		expected   float64
	}{
		{"full replacement", "a\nb", "c\nd", 100},
		{"empty old", "", "a\nb", 100},
		{"half changed", "a\nb", "a\nc", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := (&LineAlgorithm{}).ComputeDiff(tt.oldContent, tt.newContent)
			assert.InDelta(t, tt.expected, result.ChangePercent, 0.01)
		})
	}
}

func TestChangePercentNeverExceedsBounds(t *testing.T) {
	inputs := []struct{ oldContent, newContent string }{
		{"", ""},
		{"", strings.Repeat("x\n", 500)},
		{strings.Repeat("y\n", 500), ""},
		{"short", strings.Repeat("long line content\n", 1000)},
	}

	for _, alg := range []Algorithm{&LineAlgorithm{}, &WordAlgorithm{}, &CharacterAlgorithm{}} {
		for _, in := range inputs {
			result := alg.ComputeDiff(in.oldContent, in.newContent)
			assert.GreaterOrEqual(t, result.ChangePercent, 0.0, alg.Name())
			assert.LessOrEqual(t, result.ChangePercent, 100.0, alg.Name())
		}
	}
}

func TestWordAlgorithmTokenizesOnWhitespace(t *testing.T) {
	result := (&WordAlgorithm{}).ComputeDiff("the quick brown fox", "the slow brown fox")

	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 4, result.TotalOld)
	assert.Contains(t, result.Description, "words")
}

func TestCharacterAlgorithmDetectsSmallEdits(t *testing.T) {
	result := (&CharacterAlgorithm{}).ComputeDiff("$10", "$12")

	assert.Greater(t, result.ChangePercent, 0.0)
	assert.Contains(t, result.Description, "characters")
}

func TestSampleTokensRespectsLimit(t *testing.T) {
	tokens := make([]string, 20000)
	for i := range tokens {
		tokens[i] = strings.Repeat("t", 1+i%5)
	}

	sampled := sampleTokens(tokens, 9000)
	assert.Len(t, sampled, 9000)
	// Head, middle and tail are all represented.
	assert.Equal(t, tokens[0], sampled[0])
	assert.Equal(t, tokens[len(tokens)-1], sampled[len(sampled)-1])

	small := sampleTokens(tokens[:100], 9000)
	assert.Len(t, small, 100)
}

func TestScaledCountsRoundToNearest(t *testing.T) {
	oldTokens := []string{"a", "b", "c", "d", "e", "f", "g"}
	newTokens := []string{"x", "y"}

	// Sampling keeps 3 of 7 old tokens, so counts scale by 9/5. The added
	// count 2*1.8=3.6 must round up to 4, not truncate to 3.
	result := diffTokens(oldTokens, newTokens, 3, "items")

	assert.Equal(t, 4, result.Added)
	assert.Equal(t, 5, result.Removed)
}

func TestOversizedInputStillBounded(t *testing.T) {
	oldContent := strings.Repeat("stable line\n", 8000)
	newContent := strings.Repeat("changed line\n", 8000)

	result := (&LineAlgorithm{}).ComputeDiff(oldContent, newContent)
	assert.LessOrEqual(t, result.ChangePercent, 100.0)
	assert.Greater(t, result.ChangePercent, 50.0)
}

func TestPreviewShowsFragments(t *testing.T) {
	preview := Preview("the price is $10 today", "the price is $12 today")
	assert.NotEmpty(t, preview)
	assert.Contains(t, preview, "+")
	assert.Contains(t, preview, "-")

	assert.Empty(t, Preview("same", "same"))
}
