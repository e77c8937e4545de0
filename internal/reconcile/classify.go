package reconcile

import (
	"strings"
)

// DefaultCriticalTokens mark an incident summary as an outage.
var DefaultCriticalTokens = []string{
	"out_of_service",
	"link_failure",
	"site_oos",
	"sites_down",
	"faulty",
	"down",
}

// Classifier flags incidents whose summary contains any outage token.
type Classifier struct {
	tokens []string
}

// NewClassifier returns a classifier over tokens. Tokens are matched
// case-insensitively; an empty list selects DefaultCriticalTokens.
func NewClassifier(tokens []string) *Classifier {
	var clean []string
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultCriticalTokens...)
	}
	return &Classifier{tokens: clean}
}

// Tokens returns a copy of the configured token set.
func (c *Classifier) Tokens() []string {
	return append([]string(nil), c.tokens...)
}

// IsCritical reports whether summary contains any token as a substring.
// An empty summary is never critical.
func (c *Classifier) IsCritical(summary string) bool {
	if summary == "" {
		return false
	}
	s := strings.ToLower(summary)
	for _, t := range c.tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

var defaultClassifier = NewClassifier(nil)

// IsCritical classifies summary with the default token set.
func IsCritical(summary string) bool {
	return defaultClassifier.IsCritical(summary)
}
