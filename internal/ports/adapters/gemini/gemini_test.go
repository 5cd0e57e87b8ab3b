package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/forPelevin/autosub/internal/types"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func reply(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}}},
	}
}

func TestTranslate(t *testing.T) {
	fake := &fakeModels{resp: reply(
		&genai.Part{Text: "thinking about it", Thought: true},
		&genai.Part{Text: "Bonjour "},
		&genai.Part{Text: "le monde"},
	)}
	a := newWithGenerator("k", "", fake)
	got, err := a.Translate(context.Background(), "Hello world", "en", "fr")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Bonjour le monde" {
		t.Fatalf("got %q", got)
	}
	if fake.model != DefaultModel {
		t.Fatalf("model = %q", fake.model)
	}
	if len(fake.contents) != 1 || fake.contents[0].Parts[0].Text != "Hello world" {
		t.Fatalf("contents = %+v", fake.contents)
	}
	sys := fake.config.SystemInstruction.Parts[0].Text
	if !strings.Contains(sys, "French (fr)") {
		t.Fatalf("system instruction = %q", sys)
	}
}

func TestTranslateEmptyReplyIsPermanent(t *testing.T) {
	a := newWithGenerator("k", "m", &fakeModels{resp: &genai.GenerateContentResponse{}})
	_, err := a.Translate(context.Background(), "x", "en", "fr")
	var se *types.ServiceError
	if !errors.As(err, &se) || se.Kind != types.KindPermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestTranslateClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		code int
		want types.ErrorKind
	}{
		{429, types.KindTransient},
		{503, types.KindTransient},
		{400, types.KindPermanent},
		{403, types.KindPermanent},
	}
	for _, tt := range tests {
		a := newWithGenerator("secret", "m", &fakeModels{err: genai.APIError{Code: tt.code, Message: "bad key secret"}})
		_, err := a.Translate(context.Background(), "x", "en", "fr")
		var se *types.ServiceError
		if !errors.As(err, &se) {
			t.Fatalf("code %d: expected ServiceError, got %v", tt.code, err)
		}
		if se.Kind != tt.want || se.StatusCode != tt.code {
			t.Fatalf("code %d: kind=%v status=%d", tt.code, se.Kind, se.StatusCode)
		}
		if strings.Contains(se.Error(), "secret") {
			t.Fatalf("key leaked: %q", se.Error())
		}
	}
}

func TestTranslateTransportErrorIsPermanent(t *testing.T) {
	a := newWithGenerator("k", "m", &fakeModels{err: errors.New("boom")})
	_, err := a.Translate(context.Background(), "x", "en", "fr")
	var se *types.ServiceError
	if !errors.As(err, &se) || se.Kind != types.KindPermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
