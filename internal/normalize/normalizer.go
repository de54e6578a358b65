// Package normalize canonicalizes raw statement descriptions into vendor keys.
// Rule identity depends on these keys, so normalization must be deterministic
// and pure: the same input always yields the same key.
package normalize

import (
	"regexp"
	"strings"

	"github.com/oakmere/nominal/internal/common"
)

var (
	// Payment-method noise that banks prepend to the merchant name,
	// e.g. "Card 61, Tesla" or "DD Tesla Motors".
	methodPrefix = regexp.MustCompile(`^(?:card\s*\d+\s*,?|visa|pos|dd|so|bacs|chaps|fpi|fpo|atm|contactless|chq\s*\d*|cheque\s*\d*|direct\s+debit|standing\s+order)\b[\s,:-]*`)

	// Trailing reference numbers and store identifiers, e.g. "REF 123456",
	// "*9921" or a bare digit run at the end of the description.
	trailingRef = regexp.MustCompile(`[\s,]*(?:ref(?:erence)?\s*[:#]?\s*\S+|\*\d+|#\d+|\d{4,})\s*$`)

	punctuation = regexp.MustCompile(`[^a-z0-9&\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Vendor converts a raw description into its canonical vendor key. Unparseable
// input degrades to a lower-cased trimmed copy of the raw string; only an
// empty description is an error.
func Vendor(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", common.ErrInvalidRecord
	}

	key := strings.ToLower(trimmed)

	// Strip method prefixes repeatedly; some feeds stack them
	// ("POS CARD 12, ...").
	for {
		stripped := methodPrefix.ReplaceAllString(key, "")
		if stripped == key {
			break
		}
		key = stripped
	}

	for {
		stripped := trailingRef.ReplaceAllString(key, "")
		if stripped == key {
			break
		}
		key = stripped
	}

	key = punctuation.ReplaceAllString(key, " ")
	key = whitespace.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)

	if key == "" {
		// Everything looked like noise; keep the raw text rather than
		// collapsing distinct merchants onto an empty key.
		return strings.ToLower(trimmed), nil
	}

	return key, nil
}
