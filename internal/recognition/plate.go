package recognition

import (
	"regexp"
	"strings"
)

// UK registration formats, most common first. A normalized plate must match
// at least one to be accepted.
var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{3}$`),   // current: AB12CDE
	regexp.MustCompile(`^[A-Z][0-9]{1,3}[A-Z]{3}$`),    // prefix: A123BCD
	regexp.MustCompile(`^[A-Z]{3}[0-9]{1,3}[A-Z]$`),    // suffix: ABC123D
	regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,4}$`),       // dateless: ABC1234
}

// NormalizePlate uppercases the text and strips all spaces. Normalization is
// idempotent.
func NormalizePlate(text string) string {
	return strings.ReplaceAll(strings.ToUpper(text), " ", "")
}

// minPlateLength rejects degenerate short reads (e.g. "A1") that the dateless
// pattern would otherwise accept. Real registrations carry at least three
// characters.
const minPlateLength = 3

// ValidPlate reports whether normalized plate text matches any known
// registration format.
func ValidPlate(plate string) bool {
	if len(plate) < minPlateLength {
		return false
	}
	for _, pattern := range platePatterns {
		if pattern.MatchString(plate) {
			return true
		}
	}
	return false
}
