// Package validation checks the city parameter before any outbound call is made.
package validation

import (
	"errors"
	"strings"
	"unicode"
)

// Error texts are returned to API clients verbatim.
var (
	ErrCityRequired     = errors.New("City is required")
	ErrCityTooShort     = errors.New("City name is too short")
	ErrCityTooLong      = errors.New("City name is too long")
	ErrCityInvalidChars = errors.New("City contains invalid characters")
)

// RequireCity trims input and rejects only a blank result. Any other text is passed on
// for the provider to resolve.
func RequireCity(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrCityRequired
	}
	return s, nil
}

// ValidateCity trims input and checks its length (in runes) and characters.
// minLen or maxLen of 0 disables that bound. Case is left alone; the service normalizes keys.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	n := len([]rune(s))
	switch {
	case n == 0:
		return "", ErrCityRequired
	case minLen > 0 && n < minLen:
		return "", ErrCityTooShort
	case maxLen > 0 && n > maxLen:
		return "", ErrCityTooLong
	}
	for _, r := range s {
		if !allowedCityRune(r) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// allowedCityRune admits letters in any script, digits, and the punctuation found in
// place names ("St. John's", "Winston-Salem", "London,GB").
func allowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}
