package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sam/app/config"
	"sam/app/service/classify"

	_ "embed"

	"github.com/sashabaranov/go-openai"
)

//go:embed draft_prompt.txt
var draftPrompt string

const draftTimeout = 15 * time.Second

// Drafter generates a proposed reply to an incoming message.
type Drafter interface {
	Draft(ctx context.Context, sender, messageText string) (string, error)
}

type openAIDrafter struct {
	client *openai.Client
	model  string
}

func NewDrafter(cfg *config.Config) Drafter {
	return &openAIDrafter{
		client: classify.NewClient(cfg.OpenAI.Drafter),
		model:  cfg.OpenAI.Drafter.Model,
	}
}

func (d *openAIDrafter) Draft(ctx context.Context, sender, messageText string) (string, error) {
	if sender == "" {
		sender = "Unknown"
	}

	userPrompt := fmt.Sprintf(`Incoming message:
From: %s
Message: %s

Generate a concise reply.`, sender, messageText)

	ctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()

	aiResponse, err := d.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: d.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: draftPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxCompletionTokens: 120,
			Temperature:         0.4,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}
