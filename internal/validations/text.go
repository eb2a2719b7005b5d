package validations

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var spacesRegex = regexp.MustCompile(`[\t\n\r]+`)

var ugcPolicy = bluemonday.UGCPolicy()

// CleanUpText keeps safe markup and flattens line breaks.
func CleanUpText(text string) string {
	return html.UnescapeString(
		ugcPolicy.Sanitize(
			spacesRegex.ReplaceAllLiteralString(text, " "),
		))
}

// CollapseSpaces trims text and turns every whitespace run into one space.
// The text is kept as is otherwise, so a literal "<canvas>" survives.
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SplitTags turns a comma separated tag field into trimmed, non-empty names.
func SplitTags(field string) []string {
	var tags []string
	for _, part := range strings.Split(field, ",") {
		if name := strings.TrimSpace(part); name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}
