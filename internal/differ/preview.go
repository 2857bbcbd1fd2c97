package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	previewMaxFragments   = 8
	previewFragmentLength = 120
)

// Preview renders a short human-readable summary of what changed between two
// content strings, suitable for notification payloads. Only the first few
// changed fragments are included.
func Preview(oldContent, newContent string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldContent, newContent, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	fragments := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		if fragments >= previewMaxFragments {
			sb.WriteString("...\n")
			break
		}

		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		if len(text) > previewFragmentLength {
			text = text[:previewFragmentLength] + "..."
		}

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString("+ ")
		case diffmatchpatch.DiffDelete:
			sb.WriteString("- ")
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
		fragments++
	}

	return strings.TrimRight(sb.String(), "\n")
}
