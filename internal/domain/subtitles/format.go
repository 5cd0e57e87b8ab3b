package subtitles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/autosub/internal/types"
)

const (
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
	FormatJSON = "json"
	FormatRaw  = "raw"
)

// Formats lists the supported output formats, default first.
func Formats() []string {
	return []string{FormatSRT, FormatVTT, FormatJSON, FormatRaw}
}

// ParseFormat normalizes a format name.
func ParseFormat(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return FormatSRT, nil
	}
	for _, f := range Formats() {
		if n == f {
			return f, nil
		}
	}
	return "", types.ConfigErrorf("output.format", "unsupported %q (want one of %s)", name, strings.Join(Formats(), ", "))
}

// Format serializes cues in the named format.
func Format(format string, cues []types.Cue) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatVTT:
		return renderVTT(cues), nil
	case FormatJSON:
		return renderJSON(cues)
	case FormatRaw:
		return renderRaw(cues), nil
	default:
		return renderSRT(cues), nil
	}
}

func renderSRT(cues []types.Cue) []byte {
	var b bytes.Buffer
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, srtTime(c.Start), srtTime(c.End))
		if text := cleanText(c.Text); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.Bytes()
}

func renderVTT(cues []types.Cue) []byte {
	var b bytes.Buffer
	b.WriteString("WEBVTT\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "\n%s --> %s\n", vttTime(c.Start), vttTime(c.End))
		if text := cleanText(c.Text); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.Bytes()
}

type jsonCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func renderJSON(cues []types.Cue) ([]byte, error) {
	out := make([]jsonCue, 0, len(cues))
	for _, c := range cues {
		out = append(out, jsonCue{Start: c.Start.Seconds(), End: c.End.Seconds(), Text: c.Text})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cues: %w", err)
	}
	return append(data, '\n'), nil
}

func renderRaw(cues []types.Cue) []byte {
	parts := make([]string, 0, len(cues))
	for _, c := range cues {
		if text := strings.Join(strings.Fields(c.Text), " "); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []byte(strings.Join(parts, " ") + "\n")
}

func splitClock(d time.Duration) (h, m, s, ms int) {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)
	h = int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m = int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s = int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms = int(d / time.Millisecond)
	return h, m, s, ms
}

func srtTime(d time.Duration) string {
	h, m, s, ms := splitClock(d)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTime(d time.Duration) string {
	h, m, s, ms := splitClock(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
