package comparator

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// selectContent resolves the include/exclude selector pair against a markup
// document and returns the serialized remains of the included elements. An
// empty include selector means everything under the document body.
func selectContent(content, includeSelector, excludeSelector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	include := includeSelector
	if include == "" {
		include = "body *"
	}

	selection := doc.Find(include)
	if excludeSelector != "" {
		// Drop both direct matches and matching descendants of the
		// included elements.
		selection = selection.Not(excludeSelector)
		selection.Find(excludeSelector).Remove()
	}

	var sb strings.Builder
	selection.Each(func(_ int, s *goquery.Selection) {
		serialized, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		sb.WriteString(serialized)
	})

	return strings.TrimSpace(sb.String()), nil
}
