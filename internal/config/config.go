package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/autosub/internal/dispatch"
	"github.com/forPelevin/autosub/internal/domain/vad"
)

//go:embed sample_config.toml
var sampleConfig string

type Language struct {
	Source string `toml:"src"`
	Target string `toml:"dst"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Audio struct {
	// Decoder is "ffmpeg", "wav" or "auto" (wav for .wav inputs, ffmpeg otherwise).
	Decoder     string `toml:"decoder"`
	SampleRate  int    `toml:"sample_rate"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

type VAD struct {
	FrameWidthMS              int     `toml:"frame_width_ms"`
	MinRegionSeconds          float64 `toml:"min_region_seconds"`
	MaxRegionSeconds          float64 `toml:"max_region_seconds"`
	MaxContinuousSilenceSecs  float64 `toml:"max_continuous_silence_seconds"`
	EnergyThresholdPercentile float64 `toml:"energy_threshold_percentile"`
}

type Dispatch struct {
	Concurrency        int `toml:"concurrency"`
	RetryLimit         int `toml:"retry_limit"`
	CallTimeoutSeconds int `toml:"call_timeout_seconds"`
	RetryBaseDelayMS   int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS    int `toml:"retry_max_delay_ms"`
}

type Provider struct {
	Provider string `toml:"provider"`
}

type Google struct {
	APIKey           string `toml:"api_key"`
	SpeechBaseURL    string `toml:"speech_base_url"`
	TranslateBaseURL string `toml:"translate_base_url"`
}

type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	TranscriptionModel string `toml:"transcription_model"`
	TranslationModel   string `toml:"translation_model"`
}

type OpenRouter struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	Model        string   `toml:"model"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type WhisperCPP struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config is the full set of autosub settings.
type Config struct {
	Language      Language   `toml:"language"`
	Output        Output     `toml:"output"`
	Audio         Audio      `toml:"audio"`
	VAD           VAD        `toml:"vad"`
	Dispatch      Dispatch   `toml:"dispatch"`
	Transcription Provider   `toml:"transcription"`
	Translation   Provider   `toml:"translation"`
	Google        Google     `toml:"google"`
	OpenAI        OpenAI     `toml:"openai"`
	OpenRouter    OpenRouter `toml:"openrouter"`
	Gemini        Gemini     `toml:"gemini"`
	WhisperCPP    WhisperCPP `toml:"whispercpp"`
	Cache         Cache      `toml:"cache"`
	Logging       Logging    `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/autosub/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file. A
// missing file is not an error; defaults apply. It returns the resolved path
// and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("autosub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath applies the same "~" and absolute-path rules used for config values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path. It refuses
// to overwrite an existing file unless force is set.
func CreateSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// VADOptions converts the [vad] section.
func (c *Config) VADOptions() vad.Options {
	return vad.Options{
		FrameWidth:                time.Duration(c.VAD.FrameWidthMS) * time.Millisecond,
		MinRegionSize:             seconds(c.VAD.MinRegionSeconds),
		MaxRegionSize:             seconds(c.VAD.MaxRegionSeconds),
		MaxContinuousSilence:      seconds(c.VAD.MaxContinuousSilenceSecs),
		EnergyThresholdPercentile: c.VAD.EnergyThresholdPercentile,
	}
}

// DispatchConfig converts the [dispatch] and [language] sections.
func (c *Config) DispatchConfig() dispatch.Config {
	return dispatch.Config{
		Concurrency:    c.Dispatch.Concurrency,
		RetryLimit:     c.Dispatch.RetryLimit,
		CallTimeout:    time.Duration(c.Dispatch.CallTimeoutSeconds) * time.Second,
		RetryBaseDelay: time.Duration(c.Dispatch.RetryBaseDelayMS) * time.Millisecond,
		RetryMaxDelay:  time.Duration(c.Dispatch.RetryMaxDelayMS) * time.Millisecond,
		SourceLanguage: c.Language.Source,
		TargetLanguage: c.Language.Target,
	}
}

// Translates reports whether a translation step is configured.
func (c *Config) Translates() bool {
	dst := strings.TrimSpace(c.Language.Target)
	return dst != "" && !strings.EqualFold(dst, c.Language.Source)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
