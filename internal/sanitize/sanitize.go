// Package sanitize cleans user-provided event fields before they are stored
// or rendered. Titles are plain text: bluemonday's strict policy strips every
// tag and the result is HTML-unescaped back to the text the user typed.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTitleLength caps event titles, in runes.
const MaxTitleLength = 200

// policy is the singleton bluemonday policy for plain-text fields.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all markup from input, collapses whitespace and truncates
// the result to MaxTitleLength runes.
func Text(input string) string {
	if input == "" {
		return ""
	}
	clean := html.UnescapeString(getPolicy().Sanitize(input))
	clean = strings.Join(strings.Fields(clean), " ")
	if r := []rune(clean); len(r) > MaxTitleLength {
		clean = string(r[:MaxTitleLength])
	}
	return clean
}

// hexColorRe matches #rgb and #rrggbb color values.
var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// namedColorRe matches palette tokens such as "blue" or "accent-2".
var namedColorRe = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)

// Color normalizes a color value and reports whether it is acceptable.
// Empty input is allowed and stays empty.
func Color(input string) (string, bool) {
	c := strings.TrimSpace(input)
	if c == "" {
		return "", true
	}
	if hexColorRe.MatchString(c) {
		return strings.ToLower(c), true
	}
	c = strings.ToLower(c)
	if namedColorRe.MatchString(c) {
		return c, true
	}
	return "", false
}
