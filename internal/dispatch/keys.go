package dispatch

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/forPelevin/autosub/internal/types"
)

// transcriptKey identifies a recognition request by provider, language and
// the exact samples sent.
func transcriptKey(provider, lang string, clip types.SampleBuffer) string {
	h := sha256.New()
	h.Write([]byte("transcribe\x00" + provider + "\x00" + strings.ToLower(lang) + "\x00" + strconv.Itoa(clip.SampleRate) + "\x00"))
	buf := make([]byte, 2*len(clip.Samples))
	for i, s := range clip.Samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	h.Write(buf)
	return "t:" + hex.EncodeToString(h.Sum(nil))
}

func translationKey(provider, src, dst, text string) string {
	sum := sha256.Sum256([]byte("translate\x00" + provider + "\x00" + strings.ToLower(src) + "\x00" + strings.ToLower(dst) + "\x00" + text))
	return "x:" + hex.EncodeToString(sum[:])
}
