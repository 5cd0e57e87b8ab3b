// Package usecase wires decoding, region detection, dispatch and cue
// assembly into a single subtitle run. It performs no I/O of its own
// beyond what the injected ports do.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forPelevin/autosub/internal/dispatch"
	"github.com/forPelevin/autosub/internal/domain/subtitles"
	"github.com/forPelevin/autosub/internal/domain/vad"
	"github.com/forPelevin/autosub/internal/logging"
	"github.com/forPelevin/autosub/internal/ports"
	"github.com/forPelevin/autosub/internal/types"
)

type Deps struct {
	Audio       ports.AudioSource
	Transcriber ports.Transcriber
	// Translator and Cache are optional.
	Translator ports.Translator
	Cache      ports.ResultCache
	Logger     *slog.Logger
	// Progress is called once per finished region.
	Progress func(types.TranscriptionResult)
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	Path       string
	SampleRate int
	VAD        vad.Options
	Dispatch   dispatch.Config
	// Regions, when set, replaces detection (e.g. timings reused from an
	// existing subtitle file).
	Regions []types.Region
}

type Result struct {
	AudioDuration time.Duration
	Regions       []types.Region
	Results       []types.TranscriptionResult
	Cues          []types.Cue
	Failures      []types.TranscriptionResult
}

// Succeeded counts regions that produced text (possibly empty).
func (r Result) Succeeded() int { return len(r.Results) - len(r.Failures) }

// Run decodes the input, finds speech regions, transcribes them and
// assembles cues. Region-level failures are carried in the result; only
// decoding, configuration and cancellation errors are returned.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	if u.d.Transcriber == nil {
		return Result{}, errors.New("usecase: transcriber is required")
	}
	if err := in.Dispatch.Validate(); err != nil {
		return Result{}, err
	}

	buf, regions, err := u.Regions(ctx, in)
	if err != nil {
		return Result{}, err
	}
	res := Result{AudioDuration: buf.Duration(), Regions: regions}
	logger := logging.NewComponentLogger(u.d.Logger, "usecase")
	logger.Info("speech regions ready",
		logging.Int("regions", len(regions)),
		logging.Duration("audio", res.AudioDuration),
		logging.Bool("preset", len(in.Regions) > 0),
	)

	opts := []dispatch.Option{dispatch.WithLogger(u.d.Logger)}
	if u.d.Translator != nil {
		opts = append(opts, dispatch.WithTranslator(u.d.Translator))
	}
	if u.d.Cache != nil {
		opts = append(opts, dispatch.WithCache(u.d.Cache))
	}
	if u.d.Progress != nil {
		opts = append(opts, dispatch.WithProgress(u.d.Progress))
	}
	d := dispatch.New(u.d.Transcriber, in.Dispatch, opts...)

	res.Results = d.Run(ctx, buf, regions)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("transcription interrupted: %w", err)
	}
	res.Cues = subtitles.Assemble(regions, res.Results)
	res.Failures = subtitles.Failures(res.Results)
	return res, nil
}

// Regions decodes the input and returns it with the regions to transcribe.
func (u Usecase) Regions(ctx context.Context, in Input) (types.SampleBuffer, []types.Region, error) {
	if u.d.Audio == nil {
		return types.SampleBuffer{}, nil, errors.New("usecase: audio source is required")
	}
	if len(in.Regions) == 0 {
		if err := in.VAD.Validate(); err != nil {
			return types.SampleBuffer{}, nil, err
		}
	}
	if in.SampleRate <= 0 {
		return types.SampleBuffer{}, nil, types.ConfigErrorf("audio.sample_rate", "must be > 0, got %d", in.SampleRate)
	}

	buf, err := u.d.Audio.Load(ctx, in.Path, in.SampleRate)
	if err != nil {
		return types.SampleBuffer{}, nil, err
	}
	if len(in.Regions) > 0 {
		return buf, clampRegions(in.Regions, buf.Duration()), nil
	}
	regions, err := vad.Detect(buf, in.VAD)
	if err != nil {
		return types.SampleBuffer{}, nil, err
	}
	return buf, regions, nil
}

// Energies decodes the input and returns per-window energies.
func (u Usecase) Energies(ctx context.Context, in Input) ([]float64, error) {
	if u.d.Audio == nil {
		return nil, errors.New("usecase: audio source is required")
	}
	if in.VAD.FrameWidth <= 0 {
		return nil, types.ConfigErrorf("vad.frame_width", "must be > 0, got %s", in.VAD.FrameWidth)
	}
	buf, err := u.d.Audio.Load(ctx, in.Path, in.SampleRate)
	if err != nil {
		return nil, err
	}
	return vad.Energies(buf, in.VAD.FrameWidth), nil
}

// clampRegions drops preset regions that start past the end of the audio and
// trims the ones that overrun it. Indices are reassigned densely.
func clampRegions(regions []types.Region, total time.Duration) []types.Region {
	out := make([]types.Region, 0, len(regions))
	for _, r := range regions {
		if r.Start >= total {
			continue
		}
		if r.End > total {
			r.End = total
		}
		if r.End <= r.Start {
			continue
		}
		r.Index = len(out)
		out = append(out, r)
	}
	return out
}
