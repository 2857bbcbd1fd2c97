package comparator

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// extractText reduces a markup document to its visible text. Only text
// directly owned by an element counts, blocks shorter than minTextLength are
// dropped, and so are words whose punctuation-stripped length falls below
// minWordLength.
func extractText(content string, minTextLength, minWordLength int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var fragments []string
	for _, root := range doc.Nodes {
		collectOwnText(root, minTextLength, minWordLength, &fragments)
	}
	return strings.Join(fragments, " "), nil
}

func collectOwnText(n *html.Node, minTextLength, minWordLength int, fragments *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}

		var own strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				own.WriteString(c.Data)
			}
		}

		text := strings.TrimSpace(own.String())
		if len(text) >= minTextLength {
			if filtered := filterWords(text, minWordLength); filtered != "" {
				*fragments = append(*fragments, filtered)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectOwnText(c, minTextLength, minWordLength, fragments)
	}
}

// filterWords drops words whose alphanumeric length is below minWordLength.
// Punctuation is stripped for the length check only; surviving words keep
// their original form.
func filterWords(text string, minWordLength int) string {
	if minWordLength <= 0 {
		return strings.Join(strings.Fields(text), " ")
	}

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if alphanumericLength(w) >= minWordLength {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func alphanumericLength(word string) int {
	n := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
