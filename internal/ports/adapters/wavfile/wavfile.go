// Package wavfile reads and writes RIFF/WAVE PCM files. Reading downmixes to
// mono and resamples to the requested rate.
package wavfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/forPelevin/autosub/internal/types"
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

var ErrNotWAV = errors.New("not a RIFF/WAVE file")

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// Load decodes the WAV file at path into mono samples at sampleRate.
func (a *Adapter) Load(ctx context.Context, path string, sampleRate int) (types.SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	buf, err := Decode(bufio.NewReader(f))
	if err != nil {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return types.SampleBuffer{}, err
	}
	out, err := Resample(buf, sampleRate)
	if err != nil {
		return types.SampleBuffer{}, &types.DecodeError{Path: path, Err: err}
	}
	return out, nil
}

type formatChunk struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// Decode parses a WAV stream and returns its audio downmixed to mono at the
// file's own sample rate.
func Decode(r io.Reader) (types.SampleBuffer, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return types.SampleBuffer{}, fmt.Errorf("read header: %w", err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return types.SampleBuffer{}, ErrNotWAV
	}

	var fmtc *formatChunk
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return types.SampleBuffer{}, errors.New("no data chunk")
			}
			return types.SampleBuffer{}, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return types.SampleBuffer{}, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return types.SampleBuffer{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			fc := formatChunk{
				Format:        binary.LittleEndian.Uint16(body[0:2]),
				Channels:      binary.LittleEndian.Uint16(body[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			if fc.Format == formatExtensible && size >= 26 {
				fc.Format = binary.LittleEndian.Uint16(body[24:26])
			}
			fmtc = &fc
		case "data":
			if fmtc == nil {
				return types.SampleBuffer{}, errors.New("data chunk before fmt chunk")
			}
			// Streams piped from encoders may declare 0 or 0xFFFFFFFF; read to EOF then.
			var data []byte
			var err error
			if size == 0 || size == math.MaxUint32 {
				data, err = io.ReadAll(r)
			} else {
				// Truncated files keep what is there.
				data, err = io.ReadAll(io.LimitReader(r, int64(size)))
			}
			if err != nil {
				return types.SampleBuffer{}, fmt.Errorf("read data chunk: %w", err)
			}
			return decodeSamples(*fmtc, data)
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)+int64(size&1)); err != nil {
				return types.SampleBuffer{}, fmt.Errorf("skip %q chunk: %w", id, err)
			}
			continue
		}
		if size&1 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return types.SampleBuffer{}, fmt.Errorf("skip pad byte: %w", err)
			}
		}
	}
}

func decodeSamples(fc formatChunk, data []byte) (types.SampleBuffer, error) {
	if fc.Channels == 0 {
		return types.SampleBuffer{}, errors.New("zero channels")
	}
	if fc.SampleRate == 0 {
		return types.SampleBuffer{}, errors.New("zero sample rate")
	}
	width := int(fc.BitsPerSample) / 8
	var read func([]byte) float64
	switch {
	case fc.Format == formatPCM && fc.BitsPerSample == 8:
		read = func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }
	case fc.Format == formatPCM && fc.BitsPerSample == 16:
		read = func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / 32768 }
	case fc.Format == formatPCM && fc.BitsPerSample == 24:
		read = func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
			return float64(v) / 8388608
		}
	case fc.Format == formatPCM && fc.BitsPerSample == 32:
		read = func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648 }
	case fc.Format == formatFloat && fc.BitsPerSample == 32:
		read = func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }
	case fc.Format == formatFloat && fc.BitsPerSample == 64:
		read = func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
	default:
		return types.SampleBuffer{}, fmt.Errorf("unsupported encoding (format %d, %d bits)", fc.Format, fc.BitsPerSample)
	}

	channels := int(fc.Channels)
	frameBytes := width * channels
	frames := len(data) / frameBytes
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		off := i * frameBytes
		for c := 0; c < channels; c++ {
			sum += read(data[off+c*width : off+(c+1)*width])
		}
		out[i] = toInt16(sum / float64(channels))
	}
	return types.SampleBuffer{Samples: out, SampleRate: int(fc.SampleRate)}, nil
}

// Resample converts buf to rate. Buffers already at rate are returned as is.
func Resample(buf types.SampleBuffer, rate int) (types.SampleBuffer, error) {
	if rate <= 0 {
		return types.SampleBuffer{}, fmt.Errorf("invalid target rate %d", rate)
	}
	if buf.SampleRate == rate || len(buf.Samples) == 0 {
		return types.SampleBuffer{Samples: buf.Samples, SampleRate: rate}, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(buf.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return types.SampleBuffer{}, fmt.Errorf("create resampler: %w", err)
	}
	input := make([]float64, len(buf.Samples))
	for i, s := range buf.Samples {
		input[i] = float64(s) / 32768
	}
	output, err := rs.Process(input)
	if err != nil {
		return types.SampleBuffer{}, fmt.Errorf("resample %d -> %d: %w", buf.SampleRate, rate, err)
	}
	out := make([]int16, len(output))
	for i, v := range output {
		out[i] = toInt16(v)
	}
	return types.SampleBuffer{Samples: out, SampleRate: rate}, nil
}

func toInt16(v float64) int16 {
	s := math.Round(v * 32768)
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	}
	return int16(s)
}

// Encode writes buf as a 16-bit mono PCM WAV stream.
func Encode(w io.Writer, buf types.SampleBuffer) error {
	dataLen := uint32(2 * len(buf.Samples))
	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataLen)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], formatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], 1)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(buf.SampleRate*2))
	binary.LittleEndian.PutUint16(hdr[32:34], 2)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataLen)
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	body := make([]byte, dataLen)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint16(body[2*i:], uint16(s))
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// WriteFile encodes buf to path.
func WriteFile(path string, buf types.SampleBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush wav: %w", err)
	}
	return f.Close()
}
