// Package patent holds the public patent value types shared by the pipeline,
// the HTTP API and the Go client.  The central type is Number, the canonical
// US patent identifier used as the uniqueness key of a family collection.
package patent

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

// UnknownNumber is the display form of an absent identifier.
const UnknownNumber = "Unknown"

// PaddedLength is the width registry lookups are retried with.
const PaddedLength = 8

// MinCandidateDigits is the shortest canonical identifier accepted as a
// family candidate; shorter numbers in cross-reference sections are
// application serials or page anchors, not patents.
const MinCandidateDigits = 6

var usPrefix = regexp.MustCompile(`(?i)^US\s*`)

// Number is a canonical patent identifier: prefix-stripped, separator-free and
// upper-cased, e.g. "10123456" or "RE45123".
type Number string

// Normalize canonicalizes a raw identifier.  A leading "US" (any case,
// optionally followed by whitespace) is stripped, commas and whitespace are
// removed and the remainder upper-cased.  An empty result is reported as an
// InvalidIdentifier error.
func Normalize(raw string) (Number, error) {
	s := usPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return "", errors.InvalidIdentifier(raw)
	}
	return Number(s), nil
}

// MustNormalize is Normalize for literals known to be valid; it panics on
// error.
func MustNormalize(raw string) Number {
	n, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the canonical form.
func (n Number) String() string { return string(n) }

// IsZero reports whether n is empty.
func (n Number) IsZero() bool { return n == "" }

// IsNumeric reports whether n consists of ASCII digits only.
func (n Number) IsNumeric() bool {
	if n == "" {
		return false
	}
	for i := 0; i < len(n); i++ {
		if n[i] < '0' || n[i] > '9' {
			return false
		}
	}
	return true
}

// Format renders the display form: digit runs grouped in triplets from the
// right and a "US" prefix, e.g. "US10,123,456".  It never fails; an empty
// Number renders as UnknownNumber.
func (n Number) Format() string {
	if n == "" {
		return UnknownNumber
	}
	var sb strings.Builder
	sb.WriteString("US")
	s := string(n)
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		sb.WriteString(groupThousands(s[i:j]))
		i = j
	}
	return sb.String()
}

// ZeroPad returns n left-padded with zeros to PaddedLength when n is numeric
// and shorter; otherwise n is returned unchanged.  The padded form is only a
// lookup variant and never a stored key.
func (n Number) ZeroPad() Number {
	if !n.IsNumeric() || len(n) >= PaddedLength {
		return n
	}
	return Number(strings.Repeat("0", PaddedLength-len(n)) + string(n))
}

// Padded reports whether ZeroPad would change n.
func (n Number) Padded() bool { return n.ZeroPad() != n }

// DigitCount returns the number of ASCII digits in n.
func (n Number) DigitCount() int {
	c := 0
	for i := 0; i < len(n); i++ {
		if isDigit(n[i]) {
			c++
		}
	}
	return c
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	var sb strings.Builder
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

//Personal.AI order the ending
