package ai

import (
	"regexp"
	"strings"
)

var (
	openFenceRe  = regexp.MustCompile("(?i)^```[a-z]*[ \\t]*\\r?\\n?")
	closeFenceRe = regexp.MustCompile("\\r?\\n?```\\s*$")
)

// ExtractJSON strips a Markdown code fence wrapped around a model reply and
// returns the trimmed payload. Replies without a fence are only trimmed.
// When the reply has prose around a JSON object, the outermost object is returned.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = openFenceRe.ReplaceAllString(s, "")
		s = closeFenceRe.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
