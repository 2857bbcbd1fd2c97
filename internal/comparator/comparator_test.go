package comparator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sitevigil/sitevigil/internal/models"
)

func testSource(mode models.ComparisonMode) *models.Source {
	source := models.NewSource("https://example.com", "example")
	source.ID = 1
	source.ComparisonMode = mode
	return source
}

func TestNilFastPaths(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeFullContent)

	result := c.Compare(nil, nil, source)
	assert.False(t, result.HasChanged)
	assert.Zero(t, result.ChangePercent)

	result = c.Compare(nil, []byte("new"), source)
	assert.True(t, result.HasChanged)
	assert.Equal(t, 100.0, result.ChangePercent)
	assert.Contains(t, result.Description, "appeared")

	result = c.Compare([]byte("old"), nil, source)
	assert.True(t, result.HasChanged)
	assert.Equal(t, 100.0, result.ChangePercent)
	assert.Contains(t, result.Description, "disappeared")
}

func TestIdenticalContentShortCircuits(t *testing.T) {
	c := New(zerolog.Nop())
	content := []byte("<html><body><p>unchanged</p></body></html>")

	for _, mode := range []models.ComparisonMode{
		models.ComparisonModeFullContent,
		models.ComparisonModeTextOnly,
		models.ComparisonModeSelector,
	} {
		result := c.Compare(content, content, testSource(mode))
		assert.False(t, result.HasChanged, string(mode))
		assert.Zero(t, result.ChangePercent, string(mode))
	}
}

func TestFullContentDiff(t *testing.T) {
	c := New(zerolog.Nop())
	result := c.Compare(
		[]byte("line one\nline two"),
		[]byte("line one\nline three"),
		testSource(models.ComparisonModeFullContent))

	assert.True(t, result.HasChanged)
	assert.Greater(t, result.ChangePercent, 0.0)
	assert.LessOrEqual(t, result.ChangePercent, 100.0)
}

func TestTextOnlyIgnoresMarkupChanges(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeTextOnly)

	oldContent := []byte(`<html><body><div class="a"><p>Hello world</p></div></body></html>`)
	newContent := []byte(`<html><body><div class="b"><p>Hello world</p></div></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.False(t, result.HasChanged)
	assert.Zero(t, result.ChangePercent)
}

func TestTextOnlyIgnoresScripts(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeTextOnly)

	oldContent := []byte(`<html><body><script>var x = 1;</script><p>Visible text</p></body></html>`)
	newContent := []byte(`<html><body><script>var x = 2;</script><p>Visible text</p></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.Zero(t, result.ChangePercent)
}

func TestTextOnlyFiltersShortBlocks(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeTextOnly)
	source.MinTextLength = 10

	// The short block differs, the long block does not.
	oldContent := []byte(`<html><body><span>ab</span><p>A sufficiently long paragraph</p></body></html>`)
	newContent := []byte(`<html><body><span>cd</span><p>A sufficiently long paragraph</p></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.Zero(t, result.ChangePercent)
}

func TestTextOnlyDetectsTextChanges(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeTextOnly)
	source.DiffAlgorithm = models.DiffAlgorithmWord

	oldContent := []byte(`<html><body><p>The price is ten dollars</p></body></html>`)
	newContent := []byte(`<html><body><p>The price is twelve dollars</p></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.True(t, result.HasChanged)
	assert.Greater(t, result.ChangePercent, 0.0)
}

func TestSelectorModeTracksIncludedElement(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeSelector)
	source.IncludeSelector = ".price"
	source.DiffAlgorithm = models.DiffAlgorithmCharacter

	oldContent := []byte(`<html><body><h1>Shop</h1><span class="price">$10</span></body></html>`)
	newContent := []byte(`<html><body><h1>Sale</h1><span class="price">$12</span></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.True(t, result.HasChanged)
	assert.Greater(t, result.ChangePercent, 0.0)
	assert.Contains(t, result.Description, ".price")
}

func TestSelectorModeIgnoresOutsideChanges(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeSelector)
	source.IncludeSelector = ".price"

	oldContent := []byte(`<html><body><h1>Shop</h1><span class="price">$10</span></body></html>`)
	newContent := []byte(`<html><body><h1>Sale</h1><span class="price">$10</span></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.Zero(t, result.ChangePercent)
}

func TestSelectorModeExclude(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeSelector)
	source.IncludeSelector = ".content"
	source.ExcludeSelector = ".timestamp"

	oldContent := []byte(`<html><body><div class="content"><p>Stable</p><span class="timestamp">10:00</span></div></body></html>`)
	newContent := []byte(`<html><body><div class="content"><p>Stable</p><span class="timestamp">11:00</span></div></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.Zero(t, result.ChangePercent)
}

func TestSelectorDisappearance(t *testing.T) {
	c := New(zerolog.Nop())
	source := testSource(models.ComparisonModeSelector)
	source.IncludeSelector = ".price"

	oldContent := []byte(`<html><body><span class="price">$10</span></body></html>`)
	newContent := []byte(`<html><body><p>sold out</p></body></html>`)

	result := c.Compare(oldContent, newContent, source)
	assert.True(t, result.HasChanged)
	assert.Equal(t, 100.0, result.ChangePercent)
	assert.Contains(t, result.Description, ".price")
	assert.Contains(t, result.Description, "disappeared")
}

func TestIsSignificantCombinesFlagAndThreshold(t *testing.T) {
	significant := models.Changed(30, 10, 10, "changed")
	assert.True(t, significant.IsSignificant(25))
	assert.False(t, significant.IsSignificant(50))

	unchanged := models.NoChange(10)
	assert.False(t, unchanged.IsSignificant(0))
}
