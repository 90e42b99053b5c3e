package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reComment     = regexp.MustCompile(`(?s)<!--.*?-->`)
	reImage       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reLink        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	rePlaceholder = regexp.MustCompile(`\{[^}]*\}`)
	reTaskMarker  = regexp.MustCompile(`\[[ xX]\]`)
	reDashRun     = regexp.MustCompile(`-{2,}`)
	reDigitToken  = regexp.MustCompile(`\S*\d\S*`)
	rePunctuation = regexp.MustCompile("[#*_>~`|]")
	reSpace       = regexp.MustCompile(`\s+`)
)

// Clean reduces a markdown body to searchable prose. Images and links keep
// their visible text; comments, placeholders, numbers, table and task-list
// syntax are dropped.
func Clean(body string) string {
	s := reComment.ReplaceAllString(body, " ")
	s = reImage.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = rePlaceholder.ReplaceAllString(s, " ")
	s = reTaskMarker.ReplaceAllString(s, " ")
	s = reDashRun.ReplaceAllString(s, " ")
	s = reDigitToken.ReplaceAllString(s, " ")
	s = rePunctuation.ReplaceAllString(s, " ")
	s = reSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize lower-cases s and strips diacritics so "Crème Brûlée" indexes as
// "creme brulee".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokenize splits normalized text on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
