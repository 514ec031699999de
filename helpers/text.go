package helpers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Title sort patterns
	nonAlnumRegex       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	leadingArticleRegex = regexp.MustCompile(`^(a|an|the)\s`)

	// LaTeX inline math: \( ... \)
	latexRegex = regexp.MustCompile(`\\\(.*?\\\)`)

	trailingPunctRegex = regexp.MustCompile(`\p{P}$`)

	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Capitalize upper-cases the first character and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + lower.String(s[size:])
}

// CapitalizeWords splits on whitespace and capitalizes each word.
func CapitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// StripTrailingPunct removes a single trailing punctuation character.
func StripTrailingPunct(s string) string {
	return trailingPunctRegex.ReplaceAllString(s, "")
}

// TitleSort builds the sort key of the first title: lower-cased, without
// punctuation, without one leading article, without whitespace. No title
// yields no key.
func TitleSort(titles []string) (string, bool) {
	if len(titles) == 0 {
		return "", false
	}
	s := strings.ToLower(titles[0])
	s = nonAlnumRegex.ReplaceAllString(s, "")
	s = leadingArticleRegex.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return s, true
}

// TitleSearch returns the first title, followed by a variant with the
// punctuation of each \( ... \) expression removed when the title carries
// LaTeX. Searches then match both the pasted markup and the plain text.
func TitleSearch(titles []string) ([]string, bool) {
	if len(titles) == 0 {
		return nil, false
	}
	title := titles[0]
	plain := latexRegex.ReplaceAllStringFunc(title, func(expr string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				return r
			}
			return -1
		}, expr)
	})
	if plain == title {
		return []string{title}, true
	}
	return []string{title, plain}, true
}

// First returns the first value, if any.
func First(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
