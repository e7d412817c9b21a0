package feed

import "testing"

func TestKeywordsFromTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			"plain title keeps first three words",
			"how to brew coffee at home",
			"how to brew",
		},
		{
			"single-rune tokens are skipped",
			"a new era of computing",
			"new era of",
		},
		{
			"brackets are stripped before tokenizing",
			"[4K] amazing drone footage (raw)",
			"4K amazing drone",
		},
		{
			"cjk brackets are stripped too",
			"【公式】新曲MV「春よ来い」",
			"公式 新曲MV 春よ来い",
		},
		{
			"short titles keep what they have",
			"golang tips",
			"golang tips",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordsFromTitle(tt.title); got != tt.want {
				t.Errorf("keywordsFromTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestKeywordsFromTitle_FallsBackToPrefix(t *testing.T) {
	// Nothing but one-rune tokens: fall back to the raw title prefix.
	title := "a b c d e f g h i j k l m n o p q r s t u v w x"
	got := keywordsFromTitle(title)
	if got != title[:20] {
		t.Errorf("fallback = %q, want the first 20 characters %q", got, title[:20])
	}
}

func TestKeywordsFromTitle_FallbackCountsRunes(t *testing.T) {
	// One-rune CJK tokens only: fallback must cut at 20 runes, not bytes.
	title := "あ い う え お か き く け こ さ し す せ そ"
	got := keywordsFromTitle(title)
	if want := string([]rune(title)[:keywordFallbackLen]); got != want {
		t.Errorf("fallback = %q, want the first %d runes %q", got, keywordFallbackLen, want)
	}
}
