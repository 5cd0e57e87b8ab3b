// Package vad finds speech-bearing regions in a PCM buffer using short-time
// energy compared against a percentile of the buffer's own energy
// distribution, so the threshold follows recording loudness.
package vad

import (
	"math"
	"slices"
	"time"

	"github.com/forPelevin/autosub/internal/types"
)

// Options tunes region detection.
type Options struct {
	// FrameWidth is the analysis window length.
	FrameWidth time.Duration
	// MinRegionSize drops candidates shorter than this.
	MinRegionSize time.Duration
	// MaxRegionSize splits candidates longer than this.
	MaxRegionSize time.Duration
	// MaxContinuousSilence is the longest silence run absorbed inside a region.
	MaxContinuousSilence time.Duration
	// EnergyThresholdPercentile is in [0, 100). Windows whose energy is above
	// this percentile of all window energies count as voice.
	EnergyThresholdPercentile float64
}

func DefaultOptions() Options {
	return Options{
		FrameWidth:                30 * time.Millisecond,
		MinRegionSize:             500 * time.Millisecond,
		MaxRegionSize:             6 * time.Second,
		MaxContinuousSilence:      300 * time.Millisecond,
		EnergyThresholdPercentile: 20,
	}
}

func (o Options) Validate() error {
	if o.FrameWidth <= 0 {
		return types.ConfigErrorf("vad.frame_width", "must be > 0, got %s", o.FrameWidth)
	}
	if o.MinRegionSize < 0 {
		return types.ConfigErrorf("vad.min_region_size", "must be >= 0, got %s", o.MinRegionSize)
	}
	if o.MaxRegionSize <= 0 {
		return types.ConfigErrorf("vad.max_region_size", "must be > 0, got %s", o.MaxRegionSize)
	}
	if o.MinRegionSize > o.MaxRegionSize {
		return types.ConfigErrorf("vad.min_region_size", "must be <= max_region_size (%s > %s)", o.MinRegionSize, o.MaxRegionSize)
	}
	if o.MaxRegionSize < o.FrameWidth {
		return types.ConfigErrorf("vad.max_region_size", "must be >= frame_width (%s < %s)", o.MaxRegionSize, o.FrameWidth)
	}
	if o.MaxContinuousSilence < 0 {
		return types.ConfigErrorf("vad.max_continuous_silence", "must be >= 0, got %s", o.MaxContinuousSilence)
	}
	if o.EnergyThresholdPercentile < 0 || o.EnergyThresholdPercentile >= 100 || math.IsNaN(o.EnergyThresholdPercentile) {
		return types.ConfigErrorf("vad.energy_threshold_percentile", "must be in [0, 100), got %v", o.EnergyThresholdPercentile)
	}
	return nil
}

// frameSamples is the number of samples per analysis window, at least one.
func frameSamples(rate int, width time.Duration) int {
	n := int(int64(rate) * int64(width) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n
}

// Energies returns the RMS energy of each non-overlapping window. The last
// window may be shorter than width.
func Energies(buf types.SampleBuffer, width time.Duration) []float64 {
	if len(buf.Samples) == 0 || buf.SampleRate <= 0 || width <= 0 {
		return nil
	}
	n := frameSamples(buf.SampleRate, width)
	out := make([]float64, 0, (len(buf.Samples)+n-1)/n)
	for lo := 0; lo < len(buf.Samples); lo += n {
		hi := min(lo+n, len(buf.Samples))
		var sum float64
		for _, s := range buf.Samples[lo:hi] {
			v := float64(s)
			sum += v * v
		}
		out = append(out, math.Sqrt(sum/float64(hi-lo)))
	}
	return out
}

// Percentile returns the nearest-rank p-th percentile of values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	idx := min(max(rank-1, 0), len(sorted)-1)
	return sorted[idx]
}

// span is an inclusive range of window indices.
type span struct{ first, last int }

// Detect returns speech regions ordered by start, indexed from zero.
// An empty or silent buffer yields no regions and no error.
func Detect(buf types.SampleBuffer, opts Options) ([]types.Region, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	energies := Energies(buf, opts.FrameWidth)
	if len(energies) == 0 {
		return nil, nil
	}
	threshold := Percentile(energies, opts.EnergyThresholdPercentile)
	n := frameSamples(buf.SampleRate, opts.FrameWidth)
	frameDur := samplesToDuration(n, buf.SampleRate)

	var spans []span
	var (
		inRegion  bool
		cur       span
		silentRun int
	)
	for i, e := range energies {
		if e > threshold {
			if !inRegion {
				inRegion = true
				cur = span{first: i}
			}
			cur.last = i
			silentRun = 0
			continue
		}
		if !inRegion {
			continue
		}
		silentRun++
		if time.Duration(silentRun)*frameDur >= opts.MaxContinuousSilence {
			spans = append(spans, cur)
			inRegion = false
			silentRun = 0
		}
	}
	if inRegion {
		spans = append(spans, cur)
	}

	maxFrames := max(int(opts.MaxRegionSize/frameDur), 1)
	minFrames := int((opts.MinRegionSize + frameDur - 1) / frameDur)
	var regions []types.Region
	for _, sp := range spans {
		start, end := spanBounds(sp, n, len(buf.Samples), buf.SampleRate)
		if end-start < opts.MinRegionSize {
			continue
		}
		if end-start <= opts.MaxRegionSize {
			regions = append(regions, types.Region{Start: start, End: end})
			continue
		}
		for _, piece := range splitSpan(sp, maxFrames, minFrames) {
			ps, pe := spanBounds(piece, n, len(buf.Samples), buf.SampleRate)
			regions = append(regions, types.Region{Start: ps, End: pe})
		}
	}
	for i := range regions {
		regions[i].Index = i
	}
	return regions, nil
}

// splitSpan divides sp into the fewest near-equal pieces of at most
// maxFrames windows each. When equal pieces would fall below minFrames it
// cuts maxFrames-sized pieces instead and leaves the remainder last.
func splitSpan(sp span, maxFrames, minFrames int) []span {
	total := sp.last - sp.first + 1
	k := (total + maxFrames - 1) / maxFrames
	base, extra := total/k, total%k
	out := make([]span, 0, k)
	first := sp.first
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		if base < minFrames {
			size = min(maxFrames, sp.last-first+1)
		}
		out = append(out, span{first: first, last: first + size - 1})
		first += size
	}
	return out
}

func spanBounds(sp span, frame, total, rate int) (time.Duration, time.Duration) {
	lo := sp.first * frame
	hi := min((sp.last+1)*frame, total)
	return samplesToDuration(lo, rate), samplesToDuration(hi, rate)
}

func samplesToDuration(n, rate int) time.Duration {
	return time.Duration(int64(n) * int64(time.Second) / int64(rate))
}
