package config

import (
	"strings"

	"github.com/forPelevin/autosub/internal/domain/subtitles"
	"github.com/forPelevin/autosub/internal/language"
	"github.com/forPelevin/autosub/internal/types"
)

var (
	transcriptionProviders = []string{ProviderGoogle, ProviderOpenAI, ProviderWhisperCPP}
	translationProviders   = []string{ProviderGoogle, ProviderOpenAI, ProviderOpenRouter, ProviderGemini}
)

// TranscriptionProviders lists accepted [transcription] providers.
func TranscriptionProviders() []string { return append([]string(nil), transcriptionProviders...) }

// TranslationProviders lists accepted [translation] providers.
func TranslationProviders() []string { return append([]string(nil), translationProviders...) }

// Validate checks everything that does not depend on credentials. Language
// codes are rewritten to their canonical form.
func (c *Config) Validate() error {
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if _, err := subtitles.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.VADOptions().Validate(); err != nil {
		return err
	}
	if err := c.DispatchConfig().Validate(); err != nil {
		return err
	}
	if !oneOf(c.Transcription.Provider, transcriptionProviders) {
		return types.ConfigErrorf("transcription.provider", "unsupported %q (want one of %s)", c.Transcription.Provider, strings.Join(transcriptionProviders, ", "))
	}
	if !oneOf(c.Translation.Provider, translationProviders) {
		return types.ConfigErrorf("translation.provider", "unsupported %q (want one of %s)", c.Translation.Provider, strings.Join(translationProviders, ", "))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return types.ConfigErrorf("logging.format", "unsupported %q (want console or json)", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	src, err := language.ValidateSource(c.Language.Source)
	if err != nil {
		return err
	}
	c.Language.Source = src
	if strings.TrimSpace(c.Language.Target) == "" {
		return nil
	}
	dst, err := language.ValidateTarget(c.Language.Target)
	if err != nil {
		return err
	}
	c.Language.Target = dst
	return nil
}

func (c *Config) validateAudio() error {
	if !oneOf(c.Audio.Decoder, []string{DecoderAuto, DecoderFFmpeg, DecoderWAV}) {
		return types.ConfigErrorf("audio.decoder", "unsupported %q (want auto, ffmpeg or wav)", c.Audio.Decoder)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 48000 {
		return types.ConfigErrorf("audio.sample_rate", "must be between 8000 and 48000, got %d", c.Audio.SampleRate)
	}
	return nil
}

// ValidateCredentials checks that the selected providers can authenticate.
// Commands that never call a remote service skip it.
func (c *Config) ValidateCredentials() error {
	switch c.Transcription.Provider {
	case ProviderGoogle:
		if c.Google.APIKey == "" {
			return missingKey("google.api_key", "GOOGLE_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missingKey("openai.api_key", "OPENAI_API_KEY")
		}
	case ProviderWhisperCPP:
		if strings.TrimSpace(c.WhisperCPP.Model) == "" {
			return types.ConfigErrorf("whispercpp.model", "model path is required")
		}
	}
	if !c.Translates() {
		return nil
	}
	switch c.Translation.Provider {
	case ProviderGoogle:
		if c.Google.APIKey == "" {
			return missingKey("google.api_key", "GOOGLE_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missingKey("openai.api_key", "OPENAI_API_KEY")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missingKey("openrouter.api_key", "OPENROUTER_API_KEY")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missingKey("gemini.api_key", "GEMINI_API_KEY")
		}
	}
	return nil
}

func missingKey(field, env string) error {
	path, err := DefaultConfigPath()
	if err != nil {
		path = "~/.config/autosub/config.toml"
	}
	return types.ConfigErrorf(field, "is required. Set %s (or add it to .env) or edit %s (create with 'autosub config init')", env, path)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
