package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sam/app/service/memory"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/tools"
)

type memoryTool struct {
	name        string
	description string
	call        func(ctx context.Context, input string) (string, error)
}

func (m *memoryTool) Name() string {
	return m.name
}

func (m *memoryTool) Description() string {
	return m.description
}

func (m *memoryTool) Call(ctx context.Context, input string) (string, error) {
	return m.call(ctx, input)
}

// MemoryTools exposes the long-term store as langchaingo tools. Both are
// offered to the model as function definitions on every classifier request;
// the engine also routes classifier memory_update payloads through the
// update tool.
func (s *Service) MemoryTools() []tools.Tool {
	return []tools.Tool{
		&memoryTool{
			name:        "memory_update",
			description: "Merge durable personal facts into long-term memory. Input must be a JSON object of topic -> field -> {value} records.",
			call: func(_ context.Context, input string) (string, error) {
				var partial memory.Mapping
				if err := json.Unmarshal([]byte(input), &partial); err != nil {
					return "", fmt.Errorf("invalid memory update JSON: %w", err)
				}

				if err := s.memorySvc.Update(partial); err != nil {
					return "", err
				}

				return "ok", nil
			},
		},
		&memoryTool{
			name:        "memory_load",
			description: "Load the full long-term memory document. Input is ignored.",
			call: func(_ context.Context, _ string) (string, error) {
				m, err := s.memorySvc.Load()
				if err != nil {
					return "", err
				}

				result, _ := json.Marshal(m)
				return string(result), nil
			},
		},
	}
}

// toolDefinitions offers the memory tools to the model as functions.
// Arguments pass straight through to the langchaingo Call as raw JSON.
func (s *Service) toolDefinitions() []openai.Tool {
	memTools := s.MemoryTools()

	result := make([]openai.Tool, 0, len(memTools))
	for _, tool := range memTools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  json.RawMessage(`{"type":"object","additionalProperties":true}`),
			},
		})
	}

	return result
}

// runTools executes the model's tool calls and renders each outcome as a
// tool message for the follow-up request. Tool failures become error text
// for the model; the turn must not fail on them.
func (s *Service) runTools(ctx context.Context, calls []openai.ToolCall) []openai.ChatCompletionMessage {
	results := make([]openai.ChatCompletionMessage, 0, len(calls))

	for _, call := range calls {
		output, err := s.callTool(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			slog.Warn("Memory tool call failed", "tool", call.Function.Name, "error", err)
			output = fmt.Sprintf("error: %v", err)
		}

		results = append(results, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    output,
			ToolCallID: call.ID,
		})
	}

	return results
}

func (s *Service) callTool(ctx context.Context, name, input string) (string, error) {
	for _, tool := range s.MemoryTools() {
		if tool.Name() == name {
			return tool.Call(ctx, input)
		}
	}

	return "", fmt.Errorf("unknown tool %q", name)
}

// ApplyMemoryUpdate writes a classifier memory_update payload through the
// update tool. Failures are the caller's to log; the turn must not fail on them.
func (s *Service) ApplyMemoryUpdate(ctx context.Context, payload map[string]any) error {
	if len(payload) == 0 {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal memory update: %w", err)
	}

	if _, err := s.callTool(ctx, "memory_update", string(data)); err != nil {
		return fmt.Errorf("memory update failed: %w", err)
	}

	return nil
}
