package validation

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when location length is below the minimum.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// smallWords stay lower-case in titles unless they open or close the name.
var smallWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {}, "for": {}, "in": {},
	"nor": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "up": {}, "yet": {}, "so": {},
}

// ValidateLocation trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to allowed characters: letters (Unicode), digits, space, comma, hyphen,
// apostrophe and period. Returns the trimmed string or an error suitable for
// 400 INVALID_LOCATION responses.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

// NormalizeLocation validates input and returns it title-cased, which is the form sent
// to the geocoder and shown to the user.
func NormalizeLocation(input string, minLen, maxLen int) (string, error) {
	s, err := ValidateLocation(input, minLen, maxLen)
	if err != nil {
		return "", err
	}
	return TitleCase(s), nil
}

// TitleCase lower-cases s, collapses runs of spaces and capitalizes each word except
// small words ("of", "the", ...) that are neither first nor last.
func TitleCase(s string) string {
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)
	words := strings.Fields(lower.String(s))
	for i, w := range words {
		if i != 0 && i != len(words)-1 {
			if _, small := smallWords[w]; small {
				continue
			}
		}
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '\'', '.':
		return true
	}
	return false
}
