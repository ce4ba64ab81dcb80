package courses

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiHyphen = regexp.MustCompile(`-{2,}`)

// Slugify converts a course title into a URL-safe ASCII slug: decompose
// accents, strip combining marks, lowercase, hyphenate the rest.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, title)
	if err != nil {
		result = title
	}

	result = strings.ToLower(result)
	result = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, result)

	result = multiHyphen.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
