package transcript

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/entrevo/interview-backend/internal/config"
)

// WhisperTranscriber transcribes recorded audio clips through the OpenAI
// Whisper API (or any compatible endpoint). It backs the server-side
// dictation fallback for clients without a speech capability: the clip is
// transcribed as a whole, so the result is a single final fragment rather
// than a live stream.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisperTranscriber(cfg config.STTConfig) *WhisperTranscriber {
	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}
}

// Transcribe runs the clip at path through Whisper and returns the full text.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe clip: %w", err)
	}
	return resp.Text, nil
}
