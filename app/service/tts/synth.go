package tts

import (
	"context"
	"fmt"
	"io"

	"sam/app/config"

	"github.com/sashabaranov/go-openai"
)

// Synthesizer produces an MP3 stream for a piece of text. The synthesis
// mechanics are a collaborator concern; the service only plays the result.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

type openAISynthesizer struct {
	client *openai.Client
	model  string
	voice  string
}

func newOpenAISynthesizer(cfg *config.Config, client *openai.Client) *openAISynthesizer {
	return &openAISynthesizer{
		client: client,
		model:  cfg.OpenAI.TTSModel,
		voice:  cfg.OpenAI.TTSVoice,
	}
}

func (s *openAISynthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	return resp.ReadCloser, nil
}
