package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sam/app/config"
	"sam/app/service/memory"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed system_prompt.txt
var systemPrompt string

const (
	maxReasonDuration = 30 * time.Second
	maxOutputTokens   = 250
	maxToolRounds     = 3
)

// Service turns a raw utterance plus minimal memory context into a structured
// intent. It degrades to a plain "chat" result on any collaborator failure;
// an error is returned only when the surrounding context is cancelled.
type Service struct {
	cfg       *config.Config
	memorySvc *memory.Service

	client *openai.Client
	model  string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:       cfg,
		memorySvc: do.MustInvoke[*memory.Service](di),
		client:    NewClient(cfg.OpenAI.Classifier),
		model:     cfg.OpenAI.Classifier.Model,
	}, nil
}

func (s *Service) Classify(ctx context.Context, userText string, memoryContext map[string]any) (*Result, error) {
	if userText == "" {
		return chatFallback("Sir, I didn't catch that."), nil
	}

	memoryJSON := "{}"
	if len(memoryContext) > 0 {
		if data, err := json.MarshalIndent(memoryContext, "", "  "); err == nil {
			memoryJSON = string(data)
		}
	}

	userPrompt := fmt.Sprintf(`USER MESSAGE:
%s

LONG-TERM MEMORY (JSON):
%s`, userText, memoryJSON)

	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		MaxCompletionTokens: maxOutputTokens,
		Temperature:         0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Tools: s.toolDefinitions(),
	}

	var content string

	for round := 0; ; round++ {
		aiResponse, err := s.client.CreateChatCompletion(ctx, request)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}

			slog.Error("Classifier call failed", "error", err)
			return chatFallback("Sir, I am having trouble reaching my language model."), nil
		}

		if len(aiResponse.Choices) == 0 {
			slog.Error("Classifier returned no choices")
			return chatFallback("Sir, I am having trouble reaching my language model."), nil
		}

		message := aiResponse.Choices[0].Message
		if len(message.ToolCalls) == 0 || round >= maxToolRounds {
			content = message.Content
			break
		}

		request.Messages = append(request.Messages, message)
		request.Messages = append(request.Messages, s.runTools(ctx, message.ToolCalls)...)
	}

	result, err := parseResult(content)
	if err != nil {
		// Malformed structure: treat the raw text as a plain chat reply.
		slog.Warn("Classifier returned unparseable output", "error", err, "content", content)
		return chatFallback(content), nil
	}

	return result, nil
}
