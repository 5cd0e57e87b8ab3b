package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/autosub/internal/config"
	"github.com/forPelevin/autosub/internal/logging"
	"github.com/forPelevin/autosub/internal/ports/adapters/gemini"
	"github.com/forPelevin/autosub/internal/ports/adapters/google"
	"github.com/forPelevin/autosub/internal/ports/adapters/openai"
	"github.com/forPelevin/autosub/internal/ports/adapters/openrouter"
	"github.com/forPelevin/autosub/internal/ports/adapters/wavfile"
	"github.com/forPelevin/autosub/internal/types"
)

const rate = 16000

// writeTrack writes a WAV made of one-second constant-amplitude segments.
func writeTrack(t *testing.T, dir string, amplitudes ...int16) string {
	t.Helper()
	samples := make([]int16, 0, len(amplitudes)*rate)
	for _, a := range amplitudes {
		for i := 0; i < rate; i++ {
			samples = append(samples, a)
		}
	}
	path := filepath.Join(dir, "talk.wav")
	if err := wavfile.WriteFile(path, types.SampleBuffer{Samples: samples, SampleRate: rate}); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	s := config.Default()
	s.Cache.Enabled = false
	s.Google.APIKey = "k"
	s.Dispatch.RetryBaseDelayMS = 1
	s.Dispatch.RetryMaxDelayMS = 1
	return &s
}

func TestRun_WritesDocumentAndReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var peak int16
		for i := 0; i+1 < len(body); i += 2 {
			if v := int16(binary.BigEndian.Uint16(body[i:])); v > peak {
				peak = v
			}
		}
		if peak > 2000 {
			http.Error(w, "bad audio", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"result":[{"alternative":[{"transcript":"hello there"}],"final":true}]}`+"\n")
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeTrack(t, dir, 0, 1000, 0, 3000, 0)
	s := testSettings(t)
	s.Google.SpeechBaseURL = srv.URL
	s.Output.Path = filepath.Join(dir, "out", "talk.srt")

	var report bytes.Buffer
	sum, err := Run(context.Background(), Config{Settings: s, Input: input, Report: &report})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Regions != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.RunID == "" || sum.OutputPath != s.Output.Path || sum.Format != "srt" {
		t.Fatalf("summary = %+v", sum)
	}

	doc, err := os.ReadFile(s.Output.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if sum.Bytes != len(doc) {
		t.Fatalf("bytes = %d, file has %d", sum.Bytes, len(doc))
	}
	blocks := strings.Split(strings.TrimSpace(string(doc)), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 cues, got %q", doc)
	}
	if !strings.HasSuffix(blocks[0], "\nHello there") {
		t.Fatalf("first cue = %q", blocks[0])
	}
	if strings.Count(blocks[1], "\n") != 1 {
		t.Fatalf("failed cue should have no text: %q", blocks[1])
	}
	if !strings.Contains(report.String(), "HTTP 400") {
		t.Fatalf("failure table missing: %q", report.String())
	}
	if _, err := os.Stat(s.Output.Path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestRun_RegionsFromSubtitleFile(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"result":[{"alternative":[{"transcript":"again"}]}]}`+"\n")
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := writeTrack(t, dir, 0, 0, 0)
	regionsFile := filepath.Join(dir, "old.srt")
	if err := os.WriteFile(regionsFile, []byte("1\n00:00:00,500 --> 00:00:01,500\nold\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := testSettings(t)
	s.Google.SpeechBaseURL = srv.URL
	s.Output.Format = "json"

	sum, err := Run(context.Background(), Config{Settings: s, Input: input, RegionsFrom: regionsFile})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.OutputPath != filepath.Join(dir, "talk.json") {
		t.Fatalf("output path = %s", sum.OutputPath)
	}
	doc, err := os.ReadFile(sum.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc), `"text": "Again"`) || !strings.Contains(string(doc), `"start": 0.5`) {
		t.Fatalf("unexpected json: %s", doc)
	}
	if calls != 1 {
		t.Fatalf("expected one recognition call, got %d", calls)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	input := writeTrack(t, dir, 0)

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantErr   bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing input", mutate: func(c *Config) { c.Input = filepath.Join(dir, "nope.mp4") }, wantErr: true},
		{name: "missing regions file", mutate: func(c *Config) { c.RegionsFrom = filepath.Join(dir, "nope.srt") }, wantErr: true},
		{name: "missing google key", mutate: func(c *Config) { c.Settings.Google.APIKey = "" }, wantField: "google.api_key"},
		{name: "bad format", mutate: func(c *Config) { c.Settings.Output.Format = "ass" }, wantField: "output.format"},
		{
			name: "openrouter host not allowed",
			mutate: func(c *Config) {
				c.Settings.Language.Target = "de"
				c.Settings.Translation.Provider = config.ProviderOpenRouter
				c.Settings.OpenRouter.APIKey = "or"
				c.Settings.OpenRouter.BaseURL = "https://evil.example"
			},
			wantField: "openrouter.base_url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Settings: testSettings(t), Input: input}
			tt.mutate(&cfg)
			err := cfg.Validate()
			switch {
			case tt.wantField != "":
				var ce *types.ConfigError
				if !errors.As(err, &ce) || ce.Field != tt.wantField {
					t.Fatalf("expected config error on %s, got %v", tt.wantField, err)
				}
			case tt.wantErr:
				if err == nil {
					t.Fatal("expected error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestAdapterSelection(t *testing.T) {
	s := testSettings(t)
	s.Language.Target = "fr"

	tr, err := newTranscriber(s)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*google.Speech); !ok {
		t.Fatalf("transcriber = %T", tr)
	}

	tests := []struct {
		provider string
		check    func(any) bool
	}{
		{config.ProviderGoogle, func(v any) bool { _, ok := v.(*google.Translator); return ok }},
		{config.ProviderOpenAI, func(v any) bool { _, ok := v.(*openai.Adapter); return ok }},
		{config.ProviderOpenRouter, func(v any) bool { _, ok := v.(*openrouter.Adapter); return ok }},
		{config.ProviderGemini, func(v any) bool { _, ok := v.(*gemini.Adapter); return ok }},
	}
	for _, tt := range tests {
		s.Translation.Provider = tt.provider
		s.Gemini.APIKey = "g"
		got, err := newTranslator(context.Background(), s)
		if err != nil {
			t.Fatalf("%s: %v", tt.provider, err)
		}
		if !tt.check(got) {
			t.Fatalf("%s: translator = %T", tt.provider, got)
		}
	}

	s.Language.Target = "en"
	got, err := newTranslator(context.Background(), s)
	if err != nil || got != nil {
		t.Fatalf("same-language run should not translate: %T, %v", got, err)
	}

	s.Transcription.Provider = config.ProviderWhisperCPP
	s.WhisperCPP.Bin = filepath.Join(t.TempDir(), "missing-whisper")
	if _, err := newTranscriber(s); err == nil {
		t.Fatal("expected whisper.cpp check to fail")
	}
}

func TestAudioSourceSelection(t *testing.T) {
	s := testSettings(t)
	if _, ok := newAudioSource(s, "a.WAV").(*wavfile.Adapter); !ok {
		t.Fatal("auto decoder should read .wav natively")
	}
	if _, ok := newAudioSource(s, "a.mkv").(*wavfile.Adapter); ok {
		t.Fatal("auto decoder should use ffmpeg for video")
	}
	s.Audio.Decoder = config.DecoderFFmpeg
	if _, ok := newAudioSource(s, "a.wav").(*wavfile.Adapter); ok {
		t.Fatal("explicit ffmpeg decoder ignored")
	}
}

func TestRegionsAndEnergies(t *testing.T) {
	dir := t.TempDir()
	input := writeTrack(t, dir, 0, 1000, 0)
	s := testSettings(t)
	s.Google.APIKey = ""

	regions, err := Regions(context.Background(), Config{Settings: s, Input: input})
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %+v", regions)
	}
	energies, err := Energies(context.Background(), Config{Settings: s, Input: input})
	if err != nil {
		t.Fatalf("energies: %v", err)
	}
	if want := 3 * 1000 / s.VAD.FrameWidthMS; len(energies) < want {
		t.Fatalf("got %d energies, want at least %d", len(energies), want)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input, format, want string
	}{
		{"talk.mp4", "srt", "talk.srt"},
		{filepath.Join("a", "b.c.mkv"), "vtt", filepath.Join("a", "b.c.vtt")},
		{"noext", "json", "noext.json"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.input, tt.format); got != tt.want {
			t.Fatalf("DefaultOutputPath(%q, %q) = %q, want %q", tt.input, tt.format, got, tt.want)
		}
	}
}

func TestWriteOutputReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.srt")
	if err := WriteOutput(path, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := WriteOutput(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second" {
		t.Fatalf("content = %q", b)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("stray files left: %v", entries)
	}
}

func TestRenderFailures(t *testing.T) {
	regions := []types.Region{{Index: 0, Start: 0, End: time.Second}, {Index: 1, Start: 61 * time.Second, End: 62500 * time.Millisecond}}
	failures := []types.TranscriptionResult{{
		Index:    1,
		Kind:     types.KindTransient,
		Attempts: 4,
		Err:      &types.ServiceError{Provider: "google", Op: "recognize", Kind: types.KindTransient, StatusCode: 503},
	}}
	out := RenderFailures(regions, failures)
	for _, want := range []string{"00:01:01.000", "00:01:02.500", "transient", "google: HTTP 503"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "00:00:01.000") {
		t.Fatalf("successful region listed:\n%s", out)
	}
}

func TestRenderRegions(t *testing.T) {
	out := RenderRegions([]types.Region{{Index: 0, Start: 1500 * time.Millisecond, End: 3 * time.Second}})
	for _, want := range []string{"REGION", "00:00:01.500", "00:00:03.000", "1.50s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

type fixedProber time.Duration

func (p fixedProber) ProbeDuration(context.Context, string) (time.Duration, error) {
	return time.Duration(p), nil
}

func TestCheckTruncation(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	checkTruncation(context.Background(), fixedProber(10*time.Second), "in.mp4", 9500*time.Millisecond, logger)
	if buf.Len() != 0 {
		t.Fatalf("unexpected warning: %q", buf.String())
	}
	checkTruncation(context.Background(), fixedProber(10*time.Second), "in.mp4", 4*time.Second, logger)
	if !strings.Contains(buf.String(), "event_type=audio_truncated") {
		t.Fatalf("missing truncation warning: %q", buf.String())
	}
	checkTruncation(context.Background(), wavfile.New(), "in.wav", 0, logger)
}
