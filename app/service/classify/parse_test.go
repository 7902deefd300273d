package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Result
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"intent":"open_app","parameters":{"app_name":"spotify"},"text":"Opening Spotify, Sir."}`,
			want: &Result{
				Intent:     "open_app",
				Parameters: map[string]any{"app_name": "spotify"},
				Text:       "Opening Spotify, Sir.",
			},
		},
		{
			name:    "json fence",
			content: "```json\n{\"intent\":\"system_status\",\"text\":\"One moment.\"}\n```",
			want: &Result{
				Intent:     "system_status",
				Parameters: map[string]any{},
				Text:       "One moment.",
			},
		},
		{
			name:    "plain fence with prose",
			content: "Sure, here you go:\n```\n{\"intent\":\"chat\",\"text\":\"Hello, Sir.\"}\n```",
			want: &Result{
				Intent:     "chat",
				Parameters: map[string]any{},
				Text:       "Hello, Sir.",
			},
		},
		{
			name:    "missing intent defaults to chat",
			content: `{"text":" Good morning, Sir. "}`,
			want: &Result{
				Intent:     IntentChat,
				Parameters: map[string]any{},
				Text:       "Good morning, Sir.",
			},
		},
		{
			name:    "clarification flag",
			content: `{"intent":"send_message","parameters":{"receiver":"John"},"needs_clarification":true,"text":"What should the message say?"}`,
			want: &Result{
				Intent:             "send_message",
				Parameters:         map[string]any{"receiver": "John"},
				NeedsClarification: true,
				Text:               "What should the message say?",
			},
		},
		{
			name:    "no json at all",
			content: "I'm sorry, I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "broken json",
			content: `{"intent": "chat",`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResult(tt.content)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw, err := extractJSON(`The answer is {"intent":"chat"} as requested.`)

	require.NoError(t, err)
	assert.Equal(t, `{"intent":"chat"}`, raw)
}
