// Package pipeline turns a loaded configuration into a subtitle file: it
// picks the adapters, runs the use case and writes the document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/forPelevin/autosub/internal/config"
	"github.com/forPelevin/autosub/internal/domain/subtitles"
	"github.com/forPelevin/autosub/internal/logging"
	"github.com/forPelevin/autosub/internal/ports/adapters/openrouter"
	"github.com/forPelevin/autosub/internal/types"
	"github.com/forPelevin/autosub/internal/usecase"
)

type Config struct {
	Settings *config.Config
	Input    string
	// RegionsFrom, when set, names a subtitle file whose cue timings are
	// transcribed instead of running voice activity detection.
	RegionsFrom string
	Logger      *slog.Logger
	// Report receives the progress bar and the failure table. Nil discards them.
	Report io.Writer
}

func (c Config) Validate() error {
	if c.Settings == nil {
		return errors.New("settings are required")
	}
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.RegionsFrom != "" {
		if _, err := os.Stat(c.RegionsFrom); err != nil {
			return fmt.Errorf("stat regions file: %w", err)
		}
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Settings.Translates() && c.Settings.Translation.Provider == config.ProviderOpenRouter {
		if err := openrouter.ValidateBaseURL(c.Settings.OpenRouter.BaseURL, c.Settings.OpenRouter.AllowedHosts); err != nil {
			return types.ConfigErrorf("openrouter.base_url", "%v", err)
		}
	}
	return c.Settings.ValidateCredentials()
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	OutputPath string
	Format     string
	Regions    int
	Failed     int
	Cached     int
	Bytes      int
	Elapsed    time.Duration
}

// Run transcribes cfg.Input and writes the subtitle document. Region
// failures do not fail the run; they are counted in the summary and listed
// in the report.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	started := time.Now()
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	s := cfg.Settings
	format, err := subtitles.ParseFormat(s.Output.Format)
	if err != nil {
		return Summary{}, err
	}

	runID := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	plog := logging.NewComponentLogger(logger, "pipeline")

	preset, err := loadRegions(cfg.RegionsFrom)
	if err != nil {
		return Summary{}, err
	}

	transcriber, err := newTranscriber(s)
	if err != nil {
		return Summary{}, err
	}
	translator, err := newTranslator(ctx, s)
	if err != nil {
		return Summary{}, err
	}
	store, closeCache := openCache(ctx, s, plog)
	defer closeCache()

	progress := newProgress(cfg.Report)
	audio := newAudioSource(s, cfg.Input)
	deps := usecase.Deps{
		Audio:       audio,
		Transcriber: transcriber,
		Translator:  translator,
		Logger:      logger,
		Progress:    progress.Add,
	}
	if store != nil {
		deps.Cache = store
	}

	plog.Info("transcribing",
		logging.String("input", cfg.Input),
		logging.String("transcription", transcriber.Name()),
		logging.String("src", s.Language.Source),
		logging.String("dst", s.Language.Target),
	)

	in := usecase.Input{
		Path:       cfg.Input,
		SampleRate: s.Audio.SampleRate,
		VAD:        s.VADOptions(),
		Dispatch:   s.DispatchConfig(),
		Regions:    preset,
	}
	uc := usecase.New(deps)
	res, err := uc.Run(ctx, in)
	progress.Finish()
	if err != nil {
		return Summary{}, err
	}

	checkTruncation(ctx, audio, cfg.Input, res.AudioDuration, plog)

	doc, err := subtitles.Format(format, res.Cues)
	if err != nil {
		return Summary{}, err
	}
	outPath := s.Output.Path
	if outPath == "" {
		outPath = DefaultOutputPath(cfg.Input, format)
	}
	if err := WriteOutput(outPath, doc); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		RunID:      runID,
		OutputPath: outPath,
		Format:     format,
		Regions:    len(res.Regions),
		Failed:     len(res.Failures),
		Bytes:      len(doc),
		Elapsed:    time.Since(started),
	}
	for _, r := range res.Results {
		if r.Cached {
			sum.Cached++
		}
	}

	if sum.Failed > 0 {
		logging.WarnWithContext(plog, "some regions failed",
			"regions_failed",
			logging.Int("failed", sum.Failed),
			logging.Int("regions", sum.Regions),
			logging.String(logging.FieldErrorHint, "rerun to retry; successful regions are served from the cache"),
			logging.String(logging.FieldImpact, "failed regions have empty cue text"),
		)
		if cfg.Report != nil {
			fmt.Fprintln(cfg.Report, RenderFailures(res.Regions, res.Failures))
		}
	}
	plog.Info("subtitles written",
		logging.String("path", outPath),
		logging.String("format", format),
		logging.String("size", humanize.Bytes(uint64(sum.Bytes))),
		logging.Int("cues", len(res.Cues)),
		logging.Int("cached", sum.Cached),
		logging.Duration("elapsed", sum.Elapsed.Round(time.Millisecond)),
	)
	return sum, nil
}

// Regions returns the speech regions of cfg.Input without transcribing them.
func Regions(ctx context.Context, cfg Config) ([]types.Region, error) {
	uc, in, err := inspect(cfg)
	if err != nil {
		return nil, err
	}
	_, regions, err := uc.Regions(ctx, in)
	return regions, err
}

// Energies returns the per-window energies of cfg.Input.
func Energies(ctx context.Context, cfg Config) ([]float64, error) {
	uc, in, err := inspect(cfg)
	if err != nil {
		return nil, err
	}
	return uc.Energies(ctx, in)
}

// inspect prepares a decode-only use case. No credentials are needed.
func inspect(cfg Config) (usecase.Usecase, usecase.Input, error) {
	if cfg.Settings == nil {
		return usecase.Usecase{}, usecase.Input{}, errors.New("settings are required")
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return usecase.Usecase{}, usecase.Input{}, fmt.Errorf("stat input: %w", err)
	}
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return usecase.Usecase{}, usecase.Input{}, err
	}
	uc := usecase.New(usecase.Deps{Audio: newAudioSource(s, cfg.Input), Logger: cfg.Logger})
	return uc, usecase.Input{Path: cfg.Input, SampleRate: s.Audio.SampleRate, VAD: s.VADOptions()}, nil
}

type durationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// checkTruncation warns when the decoded audio is noticeably shorter than
// the container claims, which usually means a damaged input.
func checkTruncation(ctx context.Context, audio any, input string, decoded time.Duration, logger *slog.Logger) {
	p, ok := audio.(durationProber)
	if !ok {
		return
	}
	probed, err := p.ProbeDuration(ctx, input)
	if err != nil {
		logger.Debug("probe duration", logging.Error(err))
		return
	}
	if probed-decoded > time.Second {
		logging.WarnWithContext(logger, "decoded audio shorter than container",
			"audio_truncated",
			logging.Duration("container", probed),
			logging.Duration("decoded", decoded),
			logging.String(logging.FieldErrorHint, "the input may be damaged; try remuxing it with ffmpeg"),
			logging.String(logging.FieldImpact, "speech after the decoded part has no subtitles"),
		)
	}
}

func loadRegions(path string) ([]types.Region, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions file: %w", err)
	}
	defer f.Close()
	regions, err := subtitles.ParseSRTRegions(f)
	if err != nil {
		return nil, fmt.Errorf("parse regions file %s: %w", path, err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("regions file %s has no cues", path)
	}
	return regions, nil
}
