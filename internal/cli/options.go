package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/config"
	"github.com/forPelevin/autosub/internal/domain/subtitles"
	"github.com/forPelevin/autosub/internal/logging"
)

// options holds flag values. Only flags the user actually set override the
// configuration file.
type options struct {
	configPath string
	logLevel   string
	logFormat  string

	src           string
	dst           string
	format        string
	output        string
	concurrency   int
	retries       int
	regionsFrom   string
	transcription string
	translation   string
	decoder       string
	noCache       bool

	listSrc bool
	listDst bool
}

func (o *options) bindGlobal(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "Configuration file (default ~/.config/autosub/config.toml, then ./autosub.toml)")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&o.logFormat, "log-format", "", "Log format: console or json")
	f.StringVar(&o.decoder, "decoder", "", "Audio decoder: auto, ffmpeg or wav")
}

func (o *options) bindRun(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.src, "src-language", "S", "", "Language spoken in the input")
	f.StringVarP(&o.dst, "dst-language", "D", "", "Language of the subtitles (defaults to the source language)")
	f.StringVarP(&o.format, "format", "F", "", "Output format: "+strings.Join(subtitles.Formats(), ", "))
	f.StringVarP(&o.output, "output", "o", "", "Output path, or - for stdout (default <input>.<format>)")
	f.IntVarP(&o.concurrency, "concurrency", "C", 0, "Concurrent recognition requests")
	f.IntVar(&o.retries, "retries", -1, "Retries per region after a transient failure")
	f.StringVar(&o.regionsFrom, "regions-from", "", "Reuse cue timings from an existing SRT/VTT file instead of detecting speech")
	f.StringVar(&o.transcription, "transcription-provider", "", "Speech recognition backend: "+strings.Join(config.TranscriptionProviders(), ", "))
	f.StringVar(&o.translation, "translation-provider", "", "Translation backend: "+strings.Join(config.TranslationProviders(), ", "))
	f.BoolVar(&o.noCache, "no-cache", false, "Do not read or write the result cache")
	f.BoolVar(&o.listSrc, "list-src-languages", false, "List supported source languages and exit")
	f.BoolVar(&o.listDst, "list-dst-languages", false, "List supported destination languages and exit")
}

// settings loads the configuration file and applies flag overrides.
func (o *options) settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("src-language", &cfg.Language.Source, o.src)
	set("dst-language", &cfg.Language.Target, o.dst)
	set("format", &cfg.Output.Format, o.format)
	set("output", &cfg.Output.Path, o.output)
	set("transcription-provider", &cfg.Transcription.Provider, o.transcription)
	set("translation-provider", &cfg.Translation.Provider, o.translation)
	set("decoder", &cfg.Audio.Decoder, o.decoder)
	set("log-level", &cfg.Logging.Level, o.logLevel)
	set("log-format", &cfg.Logging.Format, o.logFormat)
	if flags.Changed("concurrency") {
		cfg.Dispatch.Concurrency = o.concurrency
	}
	if flags.Changed("retries") {
		cfg.Dispatch.RetryLimit = o.retries
	}
	if flags.Changed("no-cache") && o.noCache {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
		File:   cfg.Logging.File,
	})
}
