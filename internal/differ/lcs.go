package differ

import (
	"fmt"
	"math"

	"github.com/sitevigil/sitevigil/internal/models"
)

const (
	maxLineTokens      = 5000
	maxWordTokens      = 10000
	maxCharacterTokens = 10000
)

// lcsLength computes the length of the longest common subsequence of the two
// token slices using a two-row table, keeping memory linear in the shorter
// input.
func lcsLength(oldTokens, newTokens []string) int {
	if len(oldTokens) == 0 || len(newTokens) == 0 {
		return 0
	}

	// Iterate over the longer sequence, keep rows sized by the shorter one.
	outer, inner := oldTokens, newTokens
	if len(inner) > len(outer) {
		outer, inner = inner, outer
	}

	prev := make([]int, len(inner)+1)
	curr := make([]int, len(inner)+1)

	for i := 1; i <= len(outer); i++ {
		for j := 1; j <= len(inner); j++ {
			if outer[i-1] == inner[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(inner)]
}

// sampleTokens reduces an oversized token slice to at most limit tokens by
// taking equal slices from the head, middle, and tail. Token sequences at or
// under the limit are returned unchanged.
func sampleTokens(tokens []string, limit int) []string {
	if len(tokens) <= limit {
		return tokens
	}

	third := limit / 3
	midStart := len(tokens)/2 - third/2

	sampled := make([]string, 0, third*3)
	sampled = append(sampled, tokens[:third]...)
	sampled = append(sampled, tokens[midStart:midStart+third]...)
	sampled = append(sampled, tokens[len(tokens)-third:]...)
	return sampled
}

// diffTokens runs the shared LCS comparison over two token sequences,
// sampling each side down to limit tokens first. Counts computed on sampled
// input are scaled back up to the full sequence sizes.
func diffTokens(oldTokens, newTokens []string, limit int, noun string) models.DiffResult {
	totalOld := len(oldTokens)
	totalNew := len(newTokens)

	sampledOld := sampleTokens(oldTokens, limit)
	sampledNew := sampleTokens(newTokens, limit)

	common := lcsLength(sampledOld, sampledNew)
	added := len(sampledNew) - common
	removed := len(sampledOld) - common
	unchanged := common

	if len(sampledOld) != totalOld || len(sampledNew) != totalNew {
		sampledTotal := len(sampledOld) + len(sampledNew)
		if sampledTotal > 0 {
			scale := float64(totalOld+totalNew) / float64(sampledTotal)
			added = int(math.Round(float64(added) * scale))
			removed = int(math.Round(float64(removed) * scale))
			unchanged = int(math.Round(float64(unchanged) * scale))
		}
	}

	denominator := totalOld + totalNew
	if denominator < 1 {
		denominator = 1
	}
	percent := 100 * float64(added+removed) / float64(denominator)
	if percent > 100 {
		percent = 100
	}

	return models.DiffResult{
		Added:         added,
		Removed:       removed,
		Unchanged:     unchanged,
		TotalOld:      totalOld,
		TotalNew:      totalNew,
		ChangePercent: percent,
		Description:   fmt.Sprintf("%d %s added, %d %s removed", added, noun, removed, noun),
	}
}
