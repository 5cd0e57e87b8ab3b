// Package google talks to the Google Web Speech API (v2) for recognition
// and the Cloud Translation API (v2) for translation.
package google

import (
	"net/http"
	"strings"
	"time"
)

const (
	DefaultSpeechURL    = "https://www.google.com/speech-api/v2/recognize"
	DefaultTranslateURL = "https://translation.googleapis.com/language/translate/v2"

	providerName = "google"
)

// Option customizes the adapters.
type Option func(*options)

type options struct {
	client  *http.Client
	baseURL string
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithBaseURL points the adapter at a different endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u = strings.TrimSpace(u); u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{
		client:  &http.Client{Timeout: 2 * time.Minute},
		baseURL: defaultURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
