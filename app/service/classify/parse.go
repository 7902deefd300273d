package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object out of an LLM reply, tolerating
// markdown code fences and prose around the object.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}

	return text[start : end+1], nil
}

func parseResult(content string) (*Result, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var result Result
	if err = json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.Intent == "" {
		result.Intent = IntentChat
	}
	if result.Parameters == nil {
		result.Parameters = map[string]any{}
	}
	result.Text = strings.TrimSpace(result.Text)

	return &result, nil
}
