// Package openrouter translates text through OpenRouter's OpenAI-compatible
// chat completions endpoint.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/forPelevin/autosub/internal/ports/adapters/apierr"
	"github.com/forPelevin/autosub/internal/ports/adapters/prompt"
	"github.com/forPelevin/autosub/internal/types"
)

const (
	providerName = "openrouter"
	DefaultModel = "z-ai/glm-4.5-air:free"
)

type Adapter struct {
	key    string
	model  string
	client openai.Client
}

type Option func(*[]option.RequestOption)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithHTTPClient(c))
	}
}

// New builds a translator against baseURL. Callers are expected to run
// ValidateBaseURL first.
func New(apiKey, model, baseURL string, opts ...Option) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(apiURL(baseURL)),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", "autosub"),
	}
	for _, opt := range opts {
		opt(&reqOpts)
	}
	return &Adapter{key: apiKey, model: model, client: openai.NewClient(reqOpts...)}
}

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) Translate(ctx context.Context, text, src, dst string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System(src, dst)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			retryAfter := ""
			if apiErr.Response != nil {
				retryAfter = apiErr.Response.Header.Get("Retry-After")
			}
			se := apierr.Status(providerName, "translate", apiErr.StatusCode, apiErr.Message, a.key)
			if d, ok := types.ParseRetryAfter(retryAfter); ok {
				se.RetryAfter = d
			}
			return "", se
		}
		return "", apierr.FromTransport(providerName, "translate", err, a.key)
	}
	if len(resp.Choices) == 0 {
		return "", types.NewPermanent(providerName, "translate", errors.New("response has no choices"))
	}
	out, err := prompt.Clean(resp.Choices[0].Message.Content)
	if err != nil {
		return "", types.NewPermanent(providerName, "translate", fmt.Errorf("model %s reply: %w", a.model, err))
	}
	return out, nil
}
