// Package dispatch fans speech regions out to the recognition and
// translation backends with bounded parallelism, retries transient failures,
// and collects exactly one result per region.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/autosub/internal/logging"
	"github.com/forPelevin/autosub/internal/ports"
	"github.com/forPelevin/autosub/internal/types"
)

const (
	defaultConcurrency    = 10
	defaultRetryLimit     = 3
	defaultCallTimeout    = 60 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config controls scheduling and retry behaviour.
type Config struct {
	// Concurrency caps simultaneous in-flight regions.
	Concurrency int
	// RetryLimit is the number of extra attempts after the first one for a
	// transient failure. Zero disables retries.
	RetryLimit int
	// CallTimeout bounds each backend call. Zero means no per-call bound.
	CallTimeout    time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	SourceLanguage string
	TargetLanguage string
}

func DefaultConfig() Config {
	return Config{
		Concurrency:    defaultConcurrency,
		RetryLimit:     defaultRetryLimit,
		CallTimeout:    defaultCallTimeout,
		RetryBaseDelay: defaultRetryBaseDelay,
		RetryMaxDelay:  defaultRetryMaxDelay,
	}
}

func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return types.ConfigErrorf("dispatch.concurrency", "must be > 0, got %d", c.Concurrency)
	}
	if c.RetryLimit < 0 {
		return types.ConfigErrorf("dispatch.retry_limit", "must be >= 0, got %d", c.RetryLimit)
	}
	if c.CallTimeout < 0 {
		return types.ConfigErrorf("dispatch.call_timeout", "must be >= 0, got %s", c.CallTimeout)
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 {
		return types.ConfigErrorf("dispatch.retry_delay", "must be >= 0")
	}
	if strings.TrimSpace(c.SourceLanguage) == "" {
		return types.ConfigErrorf("dispatch.source_language", "is required")
	}
	return nil
}

// RegionAudio yields the samples covering a region. types.SampleBuffer
// implements it.
type RegionAudio interface {
	Slice(r types.Region) types.SampleBuffer
}

type Dispatcher struct {
	cfg         Config
	transcriber ports.Transcriber
	translator  ports.Translator
	cache       ports.ResultCache
	logger      *slog.Logger
	sleep       func(context.Context, time.Duration) error

	progressMu sync.Mutex
	progress   func(types.TranscriptionResult)
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithTranslator enables translation of recognised text into cfg.TargetLanguage.
func WithTranslator(t ports.Translator) Option {
	return func(d *Dispatcher) { d.translator = t }
}

// WithCache reuses texts from earlier runs.
func WithCache(c ports.ResultCache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithProgress registers a callback invoked once per finished region.
// Invocations are serialized.
func WithProgress(fn func(types.TranscriptionResult)) Option {
	return func(d *Dispatcher) { d.progress = fn }
}

// WithSleeper overrides how retry backoff waits (useful for tests).
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

func New(t ports.Transcriber, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:         cfg,
		transcriber: t,
		logger:      logging.NewNop(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Run processes every region and returns results in the same order as
// regions. It returns only after every worker has finished.
func (d *Dispatcher) Run(ctx context.Context, audio RegionAudio, regions []types.Region) []types.TranscriptionResult {
	results := make([]types.TranscriptionResult, len(regions))
	if len(regions) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(max(d.cfg.Concurrency, 1))
	for i, r := range regions {
		g.Go(func() error {
			res := d.process(ctx, audio, r)
			results[i] = res
			d.report(res)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) report(res types.TranscriptionResult) {
	if d.progress == nil {
		return
	}
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	d.progress(res)
}

func (d *Dispatcher) translates() bool {
	if d.translator == nil {
		return false
	}
	dst := strings.TrimSpace(d.cfg.TargetLanguage)
	return dst != "" && !strings.EqualFold(dst, strings.TrimSpace(d.cfg.SourceLanguage))
}

func (d *Dispatcher) process(ctx context.Context, audio RegionAudio, r types.Region) types.TranscriptionResult {
	res := types.TranscriptionResult{Index: r.Index}
	clip := audio.Slice(r)
	src := d.cfg.SourceLanguage

	key := transcriptKey(d.transcriber.Name(), src, clip)
	text, attempts, cached, err := d.cachedCall(ctx, key, "transcribe", r, func(callCtx context.Context) (string, error) {
		return d.transcriber.Transcribe(callCtx, clip, src)
	})
	res.Attempts = attempts
	res.Cached = cached
	if err != nil {
		return d.fail(res, r, err)
	}
	text = strings.TrimSpace(text)

	if d.translates() && text != "" {
		dst := d.cfg.TargetLanguage
		source := text
		key := translationKey(d.translator.Name(), src, dst, source)
		translated, n, cachedT, err := d.cachedCall(ctx, key, "translate", r, func(callCtx context.Context) (string, error) {
			return d.translator.Translate(callCtx, source, src, dst)
		})
		res.Attempts += n
		res.Cached = res.Cached && cachedT
		if err != nil {
			return d.fail(res, r, err)
		}
		text = strings.TrimSpace(translated)
	}

	res.Text = text
	d.logger.Debug("region transcribed",
		logging.Int("region", r.Index),
		logging.Duration("start", r.Start),
		logging.Int("attempts", res.Attempts),
		logging.Bool("cached", res.Cached),
	)
	return res
}

func (d *Dispatcher) fail(res types.TranscriptionResult, r types.Region, err error) types.TranscriptionResult {
	res.Err = err
	res.Kind = types.KindPermanent
	var se *types.ServiceError
	if errors.As(err, &se) {
		res.Kind = se.Kind
	}
	logging.WarnWithContext(d.logger, "region failed",
		"region_failed",
		logging.Int("region", r.Index),
		logging.Duration("start", r.Start),
		logging.Duration("end", r.End),
		logging.String("kind", res.Kind.String()),
		logging.Int("attempts", res.Attempts),
		logging.Error(err),
		logging.String(logging.FieldImpact, "cue will be written with empty text"),
	)
	return res
}

// cachedCall consults the cache before calling and stores successful texts.
func (d *Dispatcher) cachedCall(ctx context.Context, key, op string, r types.Region, call func(context.Context) (string, error)) (string, int, bool, error) {
	if d.cache != nil {
		text, ok, err := d.cache.Get(ctx, key)
		if err != nil {
			d.logger.Debug("cache lookup failed", logging.String("op", op), logging.Error(err))
		} else if ok {
			return text, 0, true, nil
		}
	}
	text, attempts, err := d.withRetry(ctx, op, r, call)
	if err != nil {
		return "", attempts, false, err
	}
	if d.cache != nil {
		if err := d.cache.Put(ctx, key, text); err != nil {
			d.logger.Debug("cache store failed", logging.String("op", op), logging.Error(err))
		}
	}
	return text, attempts, false, nil
}

// withRetry runs call until it succeeds, fails permanently, exhausts
// RetryLimit, or ctx is cancelled. Each attempt gets its own timeout.
func (d *Dispatcher) withRetry(ctx context.Context, op string, r types.Region, call func(context.Context) (string, error)) (string, int, error) {
	maxAttempts := d.cfg.RetryLimit + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", attempts, &types.ServiceError{Provider: "dispatch", Op: op, Kind: types.KindCanceled, Err: err}
		}
		attempts++
		text, err := d.attempt(ctx, call)
		if err == nil {
			return text, attempts, nil
		}
		se := d.classify(ctx, op, err)
		if se.Kind != types.KindTransient || attempts >= maxAttempts {
			return "", attempts, se
		}
		delay := d.backoff(attempts, se.RetryAfter)
		d.logger.Debug("retrying region",
			logging.Int("region", r.Index),
			logging.String("op", op),
			logging.Int("attempt", attempts),
			logging.Duration("delay", delay),
			logging.Error(se),
		)
		if err := d.sleep(ctx, delay); err != nil {
			return "", attempts, &types.ServiceError{Provider: "dispatch", Op: op, Kind: types.KindCanceled, Err: err}
		}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	if d.cfg.CallTimeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()
	return call(callCtx)
}

// classify turns any backend error into a ServiceError. A per-call timeout
// is transient; cancellation of the run itself is not retried.
func (d *Dispatcher) classify(ctx context.Context, op string, err error) *types.ServiceError {
	if ctx.Err() != nil {
		return &types.ServiceError{Provider: "dispatch", Op: op, Kind: types.KindCanceled, Err: err}
	}
	provider := d.transcriber.Name()
	if op == "translate" && d.translator != nil {
		provider = d.translator.Name()
	}
	se := types.ClassifyTransport(provider, op, err)
	if se.Kind == types.KindCanceled {
		// The run is still live, so the cancellation came from the call's own deadline.
		return &types.ServiceError{Provider: se.Provider, Op: se.Op, Kind: types.KindTransient, StatusCode: se.StatusCode, Err: se.Err}
	}
	return se
}

func (d *Dispatcher) backoff(attempt int, retryAfter time.Duration) time.Duration {
	maxDelay := d.cfg.RetryMaxDelay
	if retryAfter > 0 {
		if maxDelay > 0 && retryAfter > maxDelay {
			return maxDelay
		}
		return retryAfter
	}
	delay := d.cfg.RetryBaseDelay
	for i := 1; i < attempt && delay > 0; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
