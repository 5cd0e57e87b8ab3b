// Package gemini translates text with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/forPelevin/autosub/internal/ports/adapters/apierr"
	"github.com/forPelevin/autosub/internal/ports/adapters/prompt"
	"github.com/forPelevin/autosub/internal/types"
)

const (
	providerName = "gemini"
	DefaultModel = "gemini-2.0-flash"
)

// generator is the part of *genai.Models the adapter needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Adapter struct {
	key    string
	model  string
	models generator
}

// New connects to the Gemini API. Client construction does not touch the network.
func New(ctx context.Context, apiKey, model string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newWithGenerator(apiKey, model, client.Models), nil
}

func newWithGenerator(apiKey, model string, g generator) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{key: apiKey, model: model, models: g}
}

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) Translate(ctx context.Context, text, src, dst string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System(src, dst)}}},
		Temperature:       genai.Ptr[float32](0),
	}
	resp, err := a.models.GenerateContent(ctx, a.model, []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}},
	}, cfg)
	if err != nil {
		return "", a.classify(err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}
	out, err := prompt.Clean(sb.String())
	if err != nil {
		return "", types.NewPermanent(providerName, "translate", fmt.Errorf("model %s reply: %w", a.model, err))
	}
	return out, nil
}

func (a *Adapter) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apierr.Status(providerName, "translate", apiErr.Code, apiErr.Message, a.key)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return apierr.Status(providerName, "translate", apiErrPtr.Code, apiErrPtr.Message, a.key)
	}
	return apierr.FromTransport(providerName, "translate", err, a.key)
}
