package prompt

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "  Hola mundo \n", "Hola mundo", false},
		{"fenced", "```text\nHola mundo\n```", "Hola mundo", false},
		{"quoted", `"Hola mundo"`, "Hola mundo", false},
		{"curly", "“Hola”", "Hola", false},
		{"inner quotes kept", `Ella dijo "hola"`, `Ella dijo "hola"`, false},
		{"empty", "   ", "", true},
		{"empty fence", "``````", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystemNamesLanguages(t *testing.T) {
	s := System("en", "de")
	if !strings.Contains(s, "English (en)") || !strings.Contains(s, "German (de)") {
		t.Fatalf("unexpected prompt: %s", s)
	}
	if !strings.HasSuffix(Translation("hi", "en", "de"), "Line:\nhi") {
		t.Fatalf("translation prompt should end with the line")
	}
}
