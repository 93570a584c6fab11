package match

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRunRe = regexp.MustCompile(`\d+`)

// romanTable holds the subtractive-form values in descending order.
var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Roman renders n as a Roman numeral in standard subtractive form. Only
// values in [1, 3999] are representable; anything else yields "".
func Roman(n int) string {
	if n < 1 || n > 3999 {
		return ""
	}

	var b strings.Builder
	for _, e := range romanTable {
		for n >= e.value {
			b.WriteString(e.symbol)
			n -= e.value
		}
	}
	return b.String()
}

// RomanizeDigits rewrites every run of decimal digits in s as a Roman
// numeral ("final fantasy 7" becomes "final fantasy VII"). Runs outside the
// representable range are left untouched.
func RomanizeDigits(s string) string {
	return digitRunRe.ReplaceAllStringFunc(s, func(run string) string {
		n, err := strconv.Atoi(run)
		if err != nil {
			return run
		}
		if r := Roman(n); r != "" {
			return r
		}
		return run
	})
}
