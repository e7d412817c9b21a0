package feed

import "strings"

const (
	keywordTokenCount  = 3
	keywordMinRunes    = 2
	keywordFallbackLen = 20
)

// bracketStripper blanks out the bracket and quote characters commonly
// decorating video titles, including their CJK forms, so the words
// inside survive as separate tokens.
var bracketStripper = strings.NewReplacer(
	"【", " ", "】", " ",
	"[", " ", "]", " ",
	"「", " ", "」", " ",
	"『", " ", "』", " ",
	"(", " ", ")", " ",
	"（", " ", "）", " ",
)

// keywordsFromTitle reduces a video title to a short search query: strip
// bracket punctuation, keep the first three whitespace-separated tokens
// of at least two characters. Titles yielding no usable token fall back
// to their first 20 characters. This heuristic substitutes for a true
// related-videos endpoint and is an acknowledged approximation.
func keywordsFromTitle(title string) string {
	var kept []string
	for _, token := range strings.Fields(bracketStripper.Replace(title)) {
		if len([]rune(token)) < keywordMinRunes {
			continue
		}
		kept = append(kept, token)
		if len(kept) == keywordTokenCount {
			break
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}

	runes := []rune(title)
	if len(runes) > keywordFallbackLen {
		runes = runes[:keywordFallbackLen]
	}
	return string(runes)
}
