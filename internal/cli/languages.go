package cli

import (
	"fmt"
	"io"

	"github.com/forPelevin/autosub/internal/language"
)

func sourceLanguages() []language.Entry { return language.SourceLanguages() }

func targetLanguages() []language.Entry { return language.TargetLanguages() }

func listLanguages(w io.Writer, entries []language.Entry) error {
	for _, e := range entries {
		if e.Native != "" && e.Native != e.Name {
			if _, err := fmt.Fprintf(w, "%-8s %s (%s)\n", e.Code, e.Name, e.Native); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%-8s %s\n", e.Code, e.Name); err != nil {
			return err
		}
	}
	return nil
}
