// Package reconcile joins incident rows onto the site registry and derives the
// prioritization metrics consumers rank sites by.
package reconcile

import (
	"regexp"
	"strings"
)

// DefaultRegionCodes are the region codes whose "<CODE>_<digits>" site prefixes
// are stripped during key normalization.
var DefaultRegionCodes = []string{"KZN", "WES", "CEN", "EAS", "LIM", "MPU"}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// Normalizer derives canonical join keys from free-text site identifiers.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	regionPrefix *regexp.Regexp
}

// NewNormalizer builds a normalizer that strips "<code>_<digits>" for each
// region code. With no codes only character filtering applies.
func NewNormalizer(regionCodes []string) *Normalizer {
	var alts []string
	for _, code := range regionCodes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(code))
	}
	n := &Normalizer{}
	if len(alts) > 0 {
		n.regionPrefix = regexp.MustCompile(`(?:` + strings.Join(alts, "|") + `)_\d+`)
	}
	return n
}

var defaultNormalizer = NewNormalizer(DefaultRegionCodes)

// Key normalizes a raw site identifier:
//  1. lower-case
//  2. remove every "<region>_<digits>" occurrence
//  3. drop everything outside [a-z0-9]
//
// Empty or unparseable input yields "". The result never contains '_', so
// Key(Key(x)) == Key(x).
func (n *Normalizer) Key(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	if n.regionPrefix != nil {
		s = n.regionPrefix.ReplaceAllString(s, "")
	}
	s = nonKeyChars.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeKey normalizes raw with the default region codes.
func NormalizeKey(raw string) string {
	return defaultNormalizer.Key(raw)
}
