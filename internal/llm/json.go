package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a reply holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// DecodeJSON decodes a model reply into v. Markdown code fences and prose
// around the outermost object are tolerated; some OpenAI-compatible servers
// ignore response_format.
func DecodeJSON(text string, v any) error {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return ErrNoJSON
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.Join(lines[1:endIdx], "\n")
}
