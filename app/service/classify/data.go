package classify

// Result is the structured classifier output. Intent falls back to "chat"
// whenever classification is ambiguous or the call fails; Text is the literal
// utterance to speak when no action produces its own response.
type Result struct {
	Intent             string         `json:"intent"`
	Parameters         map[string]any `json:"parameters"`
	NeedsClarification bool           `json:"needs_clarification"`
	Text               string         `json:"text"`
	MemoryUpdate       map[string]any `json:"memory_update"`
}

const IntentChat = "chat"

func chatFallback(text string) *Result {
	return &Result{
		Intent:     IntentChat,
		Parameters: map[string]any{},
		Text:       text,
	}
}
