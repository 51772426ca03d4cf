package normalize

import (
	"regexp"
	"strings"
)

var (
	reFenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_+-]*")
	reFenceClose = regexp.MustCompile("```$")
)

// StripFences removes one leading ``` (with optional language tag such as
// ```python or ```json) and one trailing ``` from a model reply.
func StripFences(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	s = reFenceOpen.ReplaceAllString(s, "")
	s = reFenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
