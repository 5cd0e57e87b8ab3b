package ports

import (
	"context"

	"github.com/forPelevin/autosub/internal/types"
)

// AudioSource decodes a media file into mono PCM at sampleRate.
// Failures are reported as *types.DecodeError.
type AudioSource interface {
	Load(ctx context.Context, path string, sampleRate int) (types.SampleBuffer, error)
}

// Transcriber recognises speech in one region of audio. Failures are
// reported as *types.ServiceError so callers can tell transient from permanent.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio types.SampleBuffer, language string) (string, error)
}

// Translator converts recognised text between languages.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// ResultCache stores successful per-region texts across runs.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, text string) error
}
