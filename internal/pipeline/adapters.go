package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/forPelevin/autosub/internal/cache"
	"github.com/forPelevin/autosub/internal/config"
	"github.com/forPelevin/autosub/internal/logging"
	"github.com/forPelevin/autosub/internal/ports"
	"github.com/forPelevin/autosub/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/autosub/internal/ports/adapters/gemini"
	"github.com/forPelevin/autosub/internal/ports/adapters/google"
	"github.com/forPelevin/autosub/internal/ports/adapters/openai"
	"github.com/forPelevin/autosub/internal/ports/adapters/openrouter"
	"github.com/forPelevin/autosub/internal/ports/adapters/wavfile"
	"github.com/forPelevin/autosub/internal/ports/adapters/whispercpp"
)

// newAudioSource picks the decoder. "auto" reads .wav natively and hands
// everything else to ffmpeg.
func newAudioSource(s *config.Config, input string) ports.AudioSource {
	switch s.Audio.Decoder {
	case config.DecoderWAV:
		return wavfile.New()
	case config.DecoderFFmpeg:
		return ffmpeg.New(s.Audio.FFmpegPath, s.Audio.FFprobePath)
	}
	if strings.EqualFold(filepath.Ext(input), ".wav") {
		return wavfile.New()
	}
	return ffmpeg.New(s.Audio.FFmpegPath, s.Audio.FFprobePath)
}

func newTranscriber(s *config.Config) (ports.Transcriber, error) {
	switch s.Transcription.Provider {
	case config.ProviderGoogle:
		return google.NewSpeech(s.Google.APIKey, google.WithBaseURL(s.Google.SpeechBaseURL)), nil
	case config.ProviderOpenAI:
		return openai.New(s.OpenAI.APIKey, s.OpenAI.BaseURL, s.OpenAI.TranscriptionModel, s.OpenAI.TranslationModel), nil
	case config.ProviderWhisperCPP:
		w := whispercpp.New(s.WhisperCPP.Bin, s.WhisperCPP.Model)
		if err := w.Check(); err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported transcription provider %q", s.Transcription.Provider)
	}
}

// newTranslator returns nil when no translation is configured.
func newTranslator(ctx context.Context, s *config.Config) (ports.Translator, error) {
	if !s.Translates() {
		return nil, nil
	}
	switch s.Translation.Provider {
	case config.ProviderGoogle:
		return google.NewTranslator(s.Google.APIKey, google.WithBaseURL(s.Google.TranslateBaseURL)), nil
	case config.ProviderOpenAI:
		return openai.New(s.OpenAI.APIKey, s.OpenAI.BaseURL, s.OpenAI.TranscriptionModel, s.OpenAI.TranslationModel), nil
	case config.ProviderOpenRouter:
		return openrouter.New(s.OpenRouter.APIKey, s.OpenRouter.Model, s.OpenRouter.BaseURL), nil
	case config.ProviderGemini:
		return gemini.New(ctx, s.Gemini.APIKey, s.Gemini.Model)
	default:
		return nil, fmt.Errorf("unsupported translation provider %q", s.Translation.Provider)
	}
}

// openCache opens the result cache. A cache that cannot be opened is
// skipped with a warning.
func openCache(ctx context.Context, s *config.Config, logger *slog.Logger) (*cache.Store, func()) {
	if !s.Cache.Enabled {
		return nil, func() {}
	}
	store, err := cache.Open(ctx, s.Cache.Path)
	if err != nil {
		logging.WarnWithContext(logger, "result cache unavailable",
			"cache_open_failed",
			logging.String("path", s.Cache.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions or set [cache] enabled = false"),
			logging.String(logging.FieldImpact, "every region is sent to the remote services"),
		)
		return nil, func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Debug("close cache", logging.Error(err))
		}
	}
}

var (
	_ ports.AudioSource = (*ffmpeg.Adapter)(nil)
	_ ports.AudioSource = (*wavfile.Adapter)(nil)
	_ ports.Transcriber = (*google.Speech)(nil)
	_ ports.Transcriber = (*openai.Adapter)(nil)
	_ ports.Transcriber = (*whispercpp.Adapter)(nil)
	_ ports.Translator  = (*google.Translator)(nil)
	_ ports.Translator  = (*openai.Adapter)(nil)
	_ ports.Translator  = (*openrouter.Adapter)(nil)
	_ ports.Translator  = (*gemini.Adapter)(nil)
	_ ports.ResultCache = (*cache.Store)(nil)
)
