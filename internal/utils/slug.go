package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
var multiDash = regexp.MustCompile(`-+`)

// Slugify lowercases input, folds accents ("Créer" -> "creer") and joins
// words with dashes.
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = foldAccents(s)
	s = strings.ReplaceAll(s, "'", "-")
	s = strings.ReplaceAll(s, "&", " et ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(out, "œ", "oe"), "æ", "ae")
}
