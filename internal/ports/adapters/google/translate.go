package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/forPelevin/autosub/internal/language"
	"github.com/forPelevin/autosub/internal/ports/adapters/apierr"
	"github.com/forPelevin/autosub/internal/types"
)

// Translator uses the Cloud Translation v2 REST API.
type Translator struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewTranslator(apiKey string, opts ...Option) *Translator {
	o := buildOptions(DefaultTranslateURL, opts)
	return &Translator{key: apiKey, baseURL: o.baseURL, client: o.client}
}

func (t *Translator) Name() string { return providerName }

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      []string{text},
		Source: translateCode(src),
		Target: translateCode(dst),
		Format: "text",
	})
	if err != nil {
		return "", types.NewPermanent(providerName, "translate", fmt.Errorf("marshal request: %w", err))
	}
	endpoint := t.baseURL + "?" + url.Values{"key": {t.key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", types.NewPermanent(providerName, "translate", errors.New(apierr.Redact(err.Error(), t.key)))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", apierr.FromTransport(providerName, "translate", err, t.key)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apierr.FromResponse(providerName, "translate", resp, t.key)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewPermanent(providerName, "translate", fmt.Errorf("decode response: %w", err))
	}
	if len(out.Data.Translations) == 0 {
		return "", types.NewPermanent(providerName, "translate", errors.New("response has no translations"))
	}
	return html.UnescapeString(strings.TrimSpace(out.Data.Translations[0].TranslatedText)), nil
}

// translateCode maps BCP 47 tags onto the codes the v2 API expects.
func translateCode(code string) string {
	switch code {
	case "":
		return ""
	case "zh", "zh-Hans", "zh-CN", "zh-SG":
		return "zh-CN"
	case "zh-Hant", "zh-TW", "zh-HK":
		return "zh-TW"
	case "he":
		return "iw"
	case "fil":
		return "tl"
	}
	return language.Base(code)
}
