package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/autosub/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Load decodes any media ffmpeg understands into mono signed 16-bit PCM at
// sampleRate. The audio is streamed through a pipe; no temp file is written.
func (a *Adapter) Load(ctx context.Context, path string, sampleRate int) (types.SampleBuffer, error) {
	if _, err := os.Stat(path); err != nil {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: err}
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.SampleBuffer{}, ctxErr
		}
		return types.SampleBuffer{}, &types.DecodeError{
			Path: path,
			Err:  fmt.Errorf("ffmpeg decode audio: %w\n%s", err, tail(stderr.String(), 2000)),
		}
	}
	samples, err := pcmFromBytes(stdout.Bytes())
	if err != nil {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: err}
	}
	if len(samples) == 0 {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: errors.New("no audio stream")}
	}
	return types.SampleBuffer{Samples: samples, SampleRate: sampleRate}, nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	return parseDuration(string(b))
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func pcmFromBytes(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("truncated pcm stream (%d bytes)", len(b))
	}
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
