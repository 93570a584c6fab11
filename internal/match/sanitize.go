package match

import (
	"regexp"
	"strings"
)

var (
	// trailingArticleRe matches titles catalogued with the article moved to
	// the back ("Witcher 3, The"). The article's own casing is preserved.
	trailingArticleRe = regexp.MustCompile(`(?i)^(.+),\s*(the|a|an|der|das|die)$`)

	bracketRes = []*regexp.Regexp{
		regexp.MustCompile(`\[.+?\]`),
		regexp.MustCompile(`\(.+?\)`),
		regexp.MustCompile(`\{.+?\}`),
	}

	trademarkRe  = regexp.MustCompile(`(?i)™|®|©|\(tm\)|\(r\)|\(c\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	charReplacer = strings.NewReplacer("_", " ", ".", " ", "’", "'", `\`, "")
)

// Sanitize normalizes a noisy title for comparison: trailing articles rotate
// to the front, bracketed segments and trademark markers are stripped,
// filename punctuation becomes spaces, and whitespace collapses to single
// spaces. Callers rely on Sanitize(Sanitize(s)) == Sanitize(s); the rewrite
// loops until stable because one step can expose work for another (stripping
// a bracketed suffix can uncover a trailing article).
func Sanitize(name string) string {
	out := sanitizeOnce(name)
	for out != name {
		name = out
		out = sanitizeOnce(name)
	}
	return out
}

func sanitizeOnce(name string) string {
	if m := trailingArticleRe.FindStringSubmatch(name); m != nil {
		name = m[2] + " " + m[1]
	}
	for _, re := range bracketRes {
		name = re.ReplaceAllString(name, "")
	}
	name = trademarkRe.ReplaceAllString(name, "")
	name = charReplacer.Replace(name)
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
