// Package prompt builds the chat prompts shared by the LLM-backed
// translators and cleans their replies.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/autosub/internal/language"
)

// System returns the system instruction for translating one subtitle line.
func System(src, dst string) string {
	return fmt.Sprintf(
		"You translate subtitle lines from %s to %s. "+
			"Reply with the translation only: no quotes, no notes, no markdown, no code fences. "+
			"Keep the meaning and register; keep proper nouns as they are. "+
			"If the line is already in %s, return it unchanged.",
		describe(src), describe(dst), describe(dst),
	)
}

// Translation returns a single-turn prompt for models without a system role.
func Translation(text, src, dst string) string {
	return System(src, dst) + "\n\nLine:\n" + text
}

func describe(code string) string {
	name := language.Name(code)
	if name == "" || name == code {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// Clean strips wrappers models add around a reply despite instructions.
func Clean(content string) (string, error) {
	t := strings.TrimSpace(content)
	if t == "" {
		return "", errors.New("empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		} else {
			t = strings.TrimPrefix(t, "```")
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if len(t) >= 2 {
		for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"«", "»"}} {
			if strings.HasPrefix(t, q[0]) && strings.HasSuffix(t, q[1]) && len(t) > len(q[0])+len(q[1]) {
				t = strings.TrimSpace(t[len(q[0]) : len(t)-len(q[1])])
				break
			}
		}
	}
	if t == "" {
		return "", errors.New("empty content")
	}
	return t, nil
}
