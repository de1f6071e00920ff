// Package validate checks free-text and URL inputs before they reach the
// matching engine, the geocoder or the store.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// Field limits.
const (
	MaxQueryLength   = 200
	MaxAddressLength = 200
	MaxIDLength      = 64
	MaxTitleLength   = 120
	MaxTextLength    = 2000
	MaxPlaceLength   = 64
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // 0 = no minimum
	MaxLength      int            // 0 = no maximum
	AllowedPattern *regexp.Regexp // optional
	AllowEmpty     bool
	TrimSpace      bool
	AllowNewlines  bool // permit \n, \r and \t
}

// String validates s against constraints and returns it, trimmed if asked.
// Control characters are always rejected.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	length := utf8.RuneCountInString(s)
	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	isControl := unicode.IsControl
	if constraints.AllowNewlines {
		isControl = func(r rune) bool {
			return r != '\n' && r != '\r' && r != '\t' && unicode.IsControl(r)
		}
	}
	if !utf8.ValidString(s) || strings.IndexFunc(s, isControl) >= 0 {
		return "", fmt.Errorf("%w: control characters or invalid UTF-8", ErrInvalidCharacters)
	}
	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// SearchQuery validates an optional free-text project search.
func SearchQuery(q string) (string, error) {
	return String(q, StringConstraints{
		MaxLength:  MaxQueryLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Address validates an optional address sent for geocoding.
func Address(a string) (string, error) {
	return String(a, StringConstraints{
		MaxLength:  MaxAddressLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// ID validates a required identifier such as a project ID.
func ID(id string) (string, error) {
	return String(id, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxIDLength,
		AllowedPattern: idPattern,
		TrimSpace:      true,
	})
}

// Title validates a required single-line title.
func Title(t string) (string, error) {
	return String(t, StringConstraints{
		MinLength: 1,
		MaxLength: MaxTitleLength,
		TrimSpace: true,
	})
}

// Text validates optional multi-line free text such as a description.
func Text(t string) (string, error) {
	return String(t, StringConstraints{
		MaxLength:     MaxTextLength,
		AllowEmpty:    true,
		TrimSpace:     true,
		AllowNewlines: true,
	})
}

// Place validates an optional city or region name.
func Place(p string) (string, error) {
	return String(p, StringConstraints{
		MaxLength:  MaxPlaceLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}
