package agent

import (
	"strings"
)

// ParseTitleResponse normalizes an AI-generated PR title: takes the first
// non-empty line and strips surrounding quotes, backticks, and a trailing
// period. Models wrap titles in quotes often enough that this is worth doing
// unconditionally.
func ParseTitleResponse(response string) string {
	title := ""
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}

	title = strings.Trim(title, "\"'`")
	title = strings.TrimSuffix(title, ".")
	return strings.TrimSpace(title)
}

// ParseBodyResponse extracts the PR description from an AI response. The
// prompts ask for a fenced markdown block; when one is present its contents
// are returned, otherwise the whole trimmed response is used.
func ParseBodyResponse(response string) string {
	if inner, ok := extractFencedBlock(response); ok {
		return inner
	}
	return strings.TrimSpace(response)
}

// extractFencedBlock returns the contents of the first ``` fence in the
// text. An info string on the opening fence (```markdown) is discarded.
func extractFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}

	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the info string line.
		rest = rest[nl+1:]
	} else {
		return "", false
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}

	return strings.TrimSpace(rest[:end]), true
}
