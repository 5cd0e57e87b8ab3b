package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/autosub/internal/types"
)

func TestPCMFromBytes(t *testing.T) {
	got, err := pcmFromBytes([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80})
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{1, -1, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
	if _, err := pcmFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for odd byte count")
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("12.500000\n")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("d = %v", d)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMissingInputIsDecodeError(t *testing.T) {
	a := New("", "")
	_, err := a.Load(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), 16000)
	var de *types.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestLoadMissingBinaryIsDecodeError(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(input, []byte("not media"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := New(filepath.Join(t.TempDir(), "no-such-ffmpeg"), "")
	_, err := a.Load(context.Background(), input, 16000)
	var de *types.DecodeError
	if !errors.As(err, &de) || de.Path != input {
		t.Fatalf("expected DecodeError for %s, got %v", input, err)
	}
}
