package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/forPelevin/autosub/internal/cache"
)

// Normalize trims values, lower-cases enums, fills secrets from the
// environment and expands paths. CLI overrides should be applied before
// calling it again.
func (c *Config) Normalize() error {
	c.Language.Source = strings.TrimSpace(c.Language.Source)
	c.Language.Target = strings.TrimSpace(c.Language.Target)
	c.Output.Format = lower(c.Output.Format)
	c.Audio.Decoder = lower(c.Audio.Decoder)
	if c.Audio.Decoder == "" {
		c.Audio.Decoder = DecoderAuto
	}
	if strings.TrimSpace(c.Audio.FFmpegPath) == "" {
		c.Audio.FFmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(c.Audio.FFprobePath) == "" {
		c.Audio.FFprobePath = "ffprobe"
	}
	c.Transcription.Provider = lower(c.Transcription.Provider)
	c.Translation.Provider = lower(c.Translation.Provider)
	c.Logging.Level = lower(c.Logging.Level)
	c.Logging.Format = lower(c.Logging.Format)

	c.normalizeSecrets()

	var err error
	if c.Output.Path = strings.TrimSpace(c.Output.Path); c.Output.Path != "-" {
		if c.Output.Path, err = expandPath(c.Output.Path); err != nil {
			return fmt.Errorf("output.path: %w", err)
		}
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		if c.Cache.Path, err = cache.DefaultPath(); err != nil {
			return fmt.Errorf("cache.path: %w", err)
		}
	}
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSecrets() {
	fromEnv(&c.Google.APIKey, "GOOGLE_API_KEY")
	fromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fromEnv(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	fromEnv(&c.Gemini.APIKey, "GEMINI_API_KEY")
	overrideEnv(&c.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")
	overrideEnv(&c.OpenRouter.Model, "OPENROUTER_MODEL")
	if hosts, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok && strings.TrimSpace(hosts) != "" {
		c.OpenRouter.AllowedHosts = strings.Split(hosts, ",")
	}
}

// fromEnv fills an empty value from the environment.
func fromEnv(dst *string, key string) {
	*dst = strings.TrimSpace(*dst)
	if *dst != "" {
		return
	}
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

// overrideEnv replaces the value when the environment sets one.
func overrideEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
		return
	}
	*dst = strings.TrimSpace(*dst)
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
