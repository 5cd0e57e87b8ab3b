// Package openai adapts the OpenAI audio transcription and chat completion
// APIs. Any OpenAI-compatible server can be used through the base URL.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/autosub/internal/language"
	"github.com/forPelevin/autosub/internal/ports/adapters/apierr"
	"github.com/forPelevin/autosub/internal/ports/adapters/prompt"
	"github.com/forPelevin/autosub/internal/ports/adapters/wavfile"
	"github.com/forPelevin/autosub/internal/types"
)

const providerName = "openai"

type Adapter struct {
	key                string
	client             *openai.Client
	transcriptionModel string
	translationModel   string
}

func New(apiKey, baseURL, transcriptionModel, translationModel string) *Adapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	if translationModel == "" {
		translationModel = openai.GPT4oMini
	}
	return &Adapter{
		key:                apiKey,
		client:             openai.NewClientWithConfig(cfg),
		transcriptionModel: transcriptionModel,
		translationModel:   translationModel,
	}
}

func (a *Adapter) Name() string { return providerName }

// Transcribe uploads the clip as a WAV file.
func (a *Adapter) Transcribe(ctx context.Context, audio types.SampleBuffer, lang string) (string, error) {
	var wav bytes.Buffer
	if err := wavfile.Encode(&wav, audio); err != nil {
		return "", types.NewPermanent(providerName, "transcribe", err)
	}
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.transcriptionModel,
		FilePath: "region.wav",
		Reader:   &wav,
		Language: language.Base(lang),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", a.classify("transcribe", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (a *Adapter) Translate(ctx context.Context, text, src, dst string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.translationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System(src, dst)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", a.classify("translate", err)
	}
	if len(resp.Choices) == 0 {
		return "", types.NewPermanent(providerName, "translate", errors.New("response has no choices"))
	}
	out, err := prompt.Clean(resp.Choices[0].Message.Content)
	if err != nil {
		return "", types.NewPermanent(providerName, "translate", fmt.Errorf("model reply: %w", err))
	}
	return out, nil
}

func (a *Adapter) classify(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apierr.Status(providerName, op, apiErr.HTTPStatusCode, apiErr.Message, a.key)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return apierr.Status(providerName, op, reqErr.HTTPStatusCode, reqErr.Error(), a.key)
	}
	return apierr.FromTransport(providerName, op, err, a.key)
}
