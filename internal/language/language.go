// Package language validates and describes the language codes accepted for
// recognition and translation.
package language

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/forPelevin/autosub/internal/types"
)

// Entry describes one supported language.
type Entry struct {
	Code   string
	Name   string
	Native string
}

// Speech recognition accepts regional variants; anything whose base language
// is listed here is accepted as a source.
var sourceCodes = []string{
	"af", "ar", "bg", "ca", "cs", "cy", "da", "de", "el", "en", "en-AU", "en-CA", "en-GB",
	"en-IN", "en-US", "es", "es-419", "es-ES", "es-MX", "et", "eu", "fa", "fi", "fil", "fr",
	"fr-CA", "gl", "he", "hi", "hr", "hu", "hy", "id", "is", "it", "ja", "ka", "kk", "km",
	"ko", "lo", "lt", "lv", "mk", "ml", "mn", "mr", "ms", "nb", "ne", "nl", "pl", "pt",
	"pt-BR", "pt-PT", "ro", "ru", "si", "sk", "sl", "sr", "sv", "sw", "ta", "te", "th",
	"tr", "uk", "ur", "uz", "vi", "zh", "zh-Hans", "zh-Hant", "zu",
}

var targetCodes = []string{
	"af", "am", "ar", "az", "be", "bg", "bn", "bs", "ca", "cs", "cy", "da", "de", "el",
	"en", "eo", "es", "et", "eu", "fa", "fi", "fr", "fy", "ga", "gd", "gl", "gu", "ha",
	"he", "hi", "hr", "ht", "hu", "hy", "id", "ig", "is", "it", "ja", "jv", "ka", "kk",
	"km", "kn", "ko", "ku", "ky", "la", "lb", "lo", "lt", "lv", "mg", "mi", "mk", "ml",
	"mn", "mr", "ms", "mt", "my", "ne", "nl", "no", "ny", "pa", "pl", "ps", "pt", "ro",
	"ru", "sd", "si", "sk", "sl", "sm", "sn", "so", "sq", "sr", "st", "su", "sv", "sw",
	"ta", "te", "tg", "th", "tl", "tr", "uk", "ur", "uz", "vi", "xh", "yi", "yo",
	"zh-Hans", "zh-Hant", "zu",
}

// Normalize parses a BCP 47 code (underscores accepted) and returns its
// canonical form.
func Normalize(code string) (string, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if raw == "" {
		return "", types.ConfigErrorf("language", "is empty")
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", types.ConfigErrorf("language", "invalid code %q: %v", code, err)
	}
	return tag.String(), nil
}

// Base returns the ISO 639 base language of code, e.g. "pt" for "pt-BR".
func Base(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(code))
	}
	base, _ := tag.Base()
	return base.String()
}

// ValidateSource normalizes a recognition language and checks it is supported.
func ValidateSource(code string) (string, error) {
	return validate("language.src", code, sourceCodes)
}

// ValidateTarget normalizes a translation language and checks it is supported.
func ValidateTarget(code string) (string, error) {
	return validate("language.dst", code, targetCodes)
}

func validate(field, code string, catalog []string) (string, error) {
	norm, err := Normalize(code)
	if err != nil {
		return "", types.ConfigErrorf(field, "invalid code %q", code)
	}
	base := Base(norm)
	for _, c := range catalog {
		if strings.EqualFold(c, norm) || strings.EqualFold(c, base) {
			return norm, nil
		}
	}
	return "", types.ConfigErrorf(field, "unsupported language %q", code)
}

// SourceLanguages lists languages accepted for recognition, sorted by code.
func SourceLanguages() []Entry { return entries(sourceCodes) }

// TargetLanguages lists languages accepted for translation, sorted by code.
func TargetLanguages() []Entry { return entries(targetCodes) }

func entries(codes []string) []Entry {
	out := make([]Entry, 0, len(codes))
	for _, c := range codes {
		out = append(out, Entry{Code: c, Name: Name(c), Native: NativeName(c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Name returns the English display name of code, or the code itself.
func Name(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// NativeName returns the language's name for itself, title-cased.
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	name := display.Self.Name(tag)
	if name == "" {
		return ""
	}
	return cases.Title(tag).String(name)
}
