// ABOUTME: Case-insensitive glob matching for tool names against policy patterns.
// ABOUTME: '*' matches any run of characters; everything else is literal, including '.'.

package hitl

import "strings"

// Matches reports whether the tool name matches any of the patterns. Matching
// is case-insensitive; '*' matches any run of characters (including none) and
// all other characters are literal. An empty or nil pattern list never
// matches.
func Matches(toolName string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPattern(toolName, pattern) {
			return true
		}
	}
	return false
}

func matchPattern(name, pattern string) bool {
	name = strings.ToLower(name)
	pattern = strings.ToLower(pattern)

	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return name == pattern
	}

	// Anchor the first and last literal segments, then require the middle
	// segments to appear in order between them.
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(name, last) {
		return false
	}
	name = name[:len(name)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name, part)
		if idx < 0 {
			return false
		}
		name = name[idx+len(part):]
	}
	return true
}
