package matcher

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// FoldTitle canonicalizes a title for comparison: NFKC normalization, half/full
// width folding, lowercasing, and whitespace collapsing. Cross-source variants
// like "ＡＴＴＡＣＫ  on Titan" and "Attack on Titan" fold to the same key.
func FoldTitle(title string) string {
	folded := width.Fold.String(norm.NFKC.String(title))
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}
