package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML from input and returns trimmed plain text. Entities
// escaped by the policy are decoded again because the result is stored and
// served as JSON, never rendered as markup.
// Use for: event titles, locations, times, descriptions.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(input)))
}
