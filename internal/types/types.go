package types

import "time"

// SampleBuffer holds mono signed 16-bit PCM at a known rate.
type SampleBuffer struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b SampleBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Offset converts a time offset into a sample position clamped to the buffer.
func (b SampleBuffer) Offset(d time.Duration) int {
	if d <= 0 || b.SampleRate <= 0 {
		return 0
	}
	n := int(int64(d) * int64(b.SampleRate) / int64(time.Second))
	if n > len(b.Samples) {
		return len(b.Samples)
	}
	return n
}

// Slice returns the audio covered by r. The returned buffer shares the
// underlying samples and must not be modified.
func (b SampleBuffer) Slice(r Region) SampleBuffer {
	lo := b.Offset(r.Start)
	hi := b.Offset(r.End)
	if hi < lo {
		hi = lo
	}
	return SampleBuffer{Samples: b.Samples[lo:hi:hi], SampleRate: b.SampleRate}
}

// Region is a detected speech interval. Index is the correlation key used
// between detection, dispatch and assembly.
type Region struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

func (r Region) Duration() time.Duration { return r.End - r.Start }

// TranscriptionResult is the outcome for one region. Err is nil on success.
type TranscriptionResult struct {
	Index    int
	Text     string
	Err      error
	Kind     ErrorKind
	Attempts int
	Cached   bool
}

func (r TranscriptionResult) OK() bool { return r.Err == nil }

type Cue struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}
