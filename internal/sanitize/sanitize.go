// Package sanitize cleans user-supplied text before it is stored.
//
// Every free-text field of the API (names, titles, story texts, descriptions,
// bios, skills, comments) is plain text. Markup is stripped with bluemonday's
// strict policy so stored content can be rendered by any client without escaping
// surprises.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// maxPasses bounds how many layers of entity encoding Text peels off.
const maxPasses = 8

// Text strips all HTML and trims surrounding whitespace. Entities produced by
// the policy are decoded back so "Tom & Jerry" stays as typed. Decoding can
// expose encoded markup such as "&lt;b&gt;", so the policy runs again until
// the text stops changing. Input that never settles keeps its entities.
func (s *Sanitizer) Text(in string) string {
	out := in
	for range maxPasses {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(s.policy.Sanitize(out))
}

// List applies Text to every element and drops the ones that end up empty.
func (s *Sanitizer) List(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = s.Text(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
