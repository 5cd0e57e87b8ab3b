package whispercpp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/forPelevin/autosub/internal/types"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "whisper")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeWhisper records its arguments and writes a canned -oj file.
const fakeWhisper = `
prefix=""
lang=""
while [ $# -gt 0 ]; do
  case "$1" in
    -of) prefix="$2"; shift ;;
    -l) lang="$2"; shift ;;
  esac
  shift
done
printf '{"transcription":[{"text":" hello [%s] "},{"text":" [BLANK_AUDIO]"},{"text":"world"}]}' "$lang" > "$prefix.json"
`

func TestTranscribe(t *testing.T) {
	bin := writeScript(t, fakeWhisper)
	a := New(bin, "model.bin")
	buf := types.SampleBuffer{Samples: make([]int16, 1600), SampleRate: 16000}
	got, err := a.Transcribe(context.Background(), buf, "de-AT")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello [de] world" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscribeFailureIsPermanent(t *testing.T) {
	bin := writeScript(t, "echo 'failed to load model' >&2\nexit 3\n")
	_, err := New(bin, "missing.bin").Transcribe(context.Background(), types.SampleBuffer{Samples: []int16{0}, SampleRate: 16000}, "en")
	var se *types.ServiceError
	if !errors.As(err, &se) || se.Kind != types.KindPermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to load model") {
		t.Fatalf("stderr missing from error: %v", err)
	}
}

func TestTranscribeCanceled(t *testing.T) {
	bin := writeScript(t, "sleep 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(bin, "m").Transcribe(ctx, types.SampleBuffer{Samples: []int16{0}, SampleRate: 16000}, "en")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: `{"transcription":[]}`, want: ""},
		{name: "markers only", in: `{"transcription":[{"text":"(music)"},{"text":"[BLANK_AUDIO]"}]}`, want: ""},
		{name: "segments", in: `{"transcription":[{"text":" one"},{"text":"two "}]}`, want: "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOutput([]byte(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := parseOutput([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCheck(t *testing.T) {
	bin := writeScript(t, "exit 0\n")
	model := filepath.Join(t.TempDir(), "ggml.bin")
	if err := New(bin, model).Check(); !errors.Is(err, ErrMissingModel) {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
	if err := os.WriteFile(model, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(bin, model).Check(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
