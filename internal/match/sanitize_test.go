package match

import (
	"strings"
	"testing"
)

func TestSanitize_ArticleRotation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Witcher 3, The", "The Witcher 3"},
		{"Hobbit, the", "the Hobbit"},
		{"Legend, An", "An Legend"},
		{"Haus, das", "das Haus"},
		{"Siedler, Die", "Die Siedler"},
		// A trailing segment that is not an article stays put.
		{"Ico, Shadow", "Ico, Shadow"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_BracketStripping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Doom (2016)", "Doom"},
		{"Doom [HD]", "Doom"},
		{"Quake {beta}", "Quake"},
		{"Metro (USA) [rev 1]", "Metro"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_TrademarkAndPunctuation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Portal™", "Portal"},
		{"Sonic®", "Sonic"},
		{"Tetris©", "Tetris"},
		{"super_mario.world", "super mario world"},
		{"Tom’s Quest", "Tom's Quest"},
		{`back\slash`, "backslash"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// A bracketed suffix can hide a trailing article; stripping the one must
// still rotate the other.
func TestSanitize_ArticleBehindBrackets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Witcher 3, The (HD)", "The Witcher 3"},
		{"Witcher 3 (HD), The", "The Witcher 3"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Doom",
		"Witcher 3, The",
		"Witcher 3, The (HD)",
		"Doom (2016) [HD] {beta}",
		"  spaced   out  ",
		"a_b.c’d\\e",
		"X, the, the",
		"((a))",
		"( (x) )",
		"Tom Clancy's Splinter Cell®",
		"Half-Life 2: Episode One",
		"™®©",
		"(tm) leftover",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestSanitize_WhitespaceCollapsed(t *testing.T) {
	inputs := []string{
		"  leading",
		"trailing   ",
		"a \t b \n c",
		"name (x)    (y) done",
		"_._",
	}

	for _, in := range inputs {
		got := Sanitize(in)
		if strings.Contains(got, "  ") {
			t.Errorf("Sanitize(%q) = %q contains a double space", in, got)
		}
		if got != strings.TrimSpace(got) {
			t.Errorf("Sanitize(%q) = %q has leading/trailing space", in, got)
		}
	}
}
