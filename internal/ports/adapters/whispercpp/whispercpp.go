// Package whispercpp runs a local whisper.cpp binary as a Transcriber.
package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/autosub/internal/language"
	"github.com/forPelevin/autosub/internal/ports/adapters/wavfile"
	"github.com/forPelevin/autosub/internal/types"
)

const providerName = "whispercpp"

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Name() string { return providerName }

// output mirrors the -oj file whisper.cpp writes next to -of.
type output struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe writes the clip to a scratch WAV, runs the binary on it and
// joins the recognised segments.
func (a *Adapter) Transcribe(ctx context.Context, audio types.SampleBuffer, lang string) (string, error) {
	dir, err := os.MkdirTemp("", "autosub-whisper-*")
	if err != nil {
		return "", types.NewPermanent(providerName, "transcribe", fmt.Errorf("scratch dir: %w", err))
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "region.wav")
	if err := wavfile.WriteFile(wavPath, audio); err != nil {
		return "", types.NewPermanent(providerName, "transcribe", err)
	}

	outPrefix := filepath.Join(dir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", whisperLanguage(lang),
		"-nt",
		"-np",
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 400 {
			msg = msg[len(msg)-400:]
		}
		return "", types.NewPermanent(providerName, "transcribe", fmt.Errorf("whisper.cpp failed: %w: %s", err, msg))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return "", types.NewPermanent(providerName, "transcribe", fmt.Errorf("read output: %w", err))
	}
	return parseOutput(jb)
}

func parseOutput(b []byte) (string, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return "", types.NewPermanent(providerName, "transcribe", fmt.Errorf("decode output: %w", err))
	}
	parts := make([]string, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" || isNonSpeechMarker(text) {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " "), nil
}

// isNonSpeechMarker reports annotations like [BLANK_AUDIO] or (music).
func isNonSpeechMarker(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
}

func whisperLanguage(code string) string {
	if base := language.Base(code); base != "" {
		return base
	}
	return "auto"
}

// ErrMissingModel is returned by Check when the model file is absent.
var ErrMissingModel = errors.New("whisper.cpp model not found")

// Check verifies the binary and model paths before a run.
func (a *Adapter) Check() error {
	if _, err := exec.LookPath(a.bin); err != nil {
		return fmt.Errorf("whisper.cpp binary %q: %w", a.bin, err)
	}
	if _, err := os.Stat(a.model); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingModel, a.model)
	}
	return nil
}
