package google

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/autosub/internal/ports/adapters/apierr"
	"github.com/forPelevin/autosub/internal/types"
)

// Speech recognises short clips through the Web Speech API.
type Speech struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewSpeech(apiKey string, opts ...Option) *Speech {
	o := buildOptions(DefaultSpeechURL, opts)
	return &Speech{key: apiKey, baseURL: o.baseURL, client: o.client}
}

func (s *Speech) Name() string { return providerName }

type speechResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

// Transcribe sends the clip as big-endian linear PCM. An empty transcript
// means the service heard nothing and is not an error.
func (s *Speech) Transcribe(ctx context.Context, audio types.SampleBuffer, language string) (string, error) {
	if audio.SampleRate <= 0 {
		return "", types.NewPermanent(providerName, "recognize", fmt.Errorf("invalid sample rate %d", audio.SampleRate))
	}
	q := url.Values{}
	q.Set("client", "chromium")
	q.Set("lang", language)
	q.Set("key", s.key)
	endpoint := s.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encodeL16(audio.Samples)))
	if err != nil {
		return "", types.NewPermanent(providerName, "recognize", errors.New(apierr.Redact(err.Error(), s.key)))
	}
	req.Header.Set("Content-Type", "audio/l16; rate="+strconv.Itoa(audio.SampleRate))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apierr.FromTransport(providerName, "recognize", err, s.key)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apierr.FromResponse(providerName, "recognize", resp, s.key)
	}

	text, err := parseSpeechResponse(resp.Body)
	if err != nil {
		return "", types.NewPermanent(providerName, "recognize", err)
	}
	return text, nil
}

// parseSpeechResponse reads the newline-delimited JSON stream and returns the
// first alternative of the first non-empty result.
func parseSpeechResponse(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var payload speechResponse
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			return "", fmt.Errorf("decode speech response: %w", err)
		}
		for _, res := range payload.Result {
			if len(res.Alternative) == 0 {
				continue
			}
			return capitalize(strings.TrimSpace(res.Alternative[0].Transcript)), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read speech response: %w", err)
	}
	return "", nil
}

func encodeL16(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.BigEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
