package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/spigell/wingman/internal/analysis"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestAnalyzerAnalyze(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"decision\": \"Yes\", \"score\": 82, \"reason\": \"You match the stack.\", \"coverLetter\": \"Dear...\", \"resumeEnhancements\": \"Add Go metrics\"}\n```"}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), "Backend Engineer", "Build APIs in Go", "Experienced engineer...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := analysis.Result{
		Decision:           analysis.DecisionYes,
		Score:              82,
		Reason:             "You match the stack.",
		CoverLetter:        "Dear...",
		ResumeEnhancements: "Add Go metrics",
	}
	if *result != expected {
		t.Fatalf("unexpected result: %+v", result)
	}

	for _, fragment := range []string{"Job title:\nBackend Engineer", "Job description:\nBuild APIs in Go", "Resume:\nExperienced engineer..."} {
		if !strings.Contains(stub.lastPrompt, fragment) {
			t.Fatalf("expected prompt to contain %q, got: %s", fragment, stub.lastPrompt)
		}
	}

	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("expected all placeholders to be replaced: %s", stub.lastPrompt)
	}
}

func TestBuildPromptDoesNotReexpandPlaceholders(t *testing.T) {
	prompt := buildPrompt("Title", "Mentions {{RESUME_TEXT}} literally", "resume body")

	if strings.Count(prompt, "resume body") != 1 {
		t.Fatalf("resume text must be inserted once: %s", prompt)
	}
	if !strings.Contains(prompt, "Mentions {{RESUME_TEXT}} literally") {
		t.Fatalf("job description must be kept verbatim: %s", prompt)
	}
}

func TestAnalyzerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stub    *stubGenerator
		kind    error
		message string
	}{
		{
			name:    "api error message",
			stub:    &stubGenerator{err: fmt.Errorf("generate content: %w", genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exhausted"})},
			kind:    analysis.ErrAnalysisTransportFailed,
			message: "quota exhausted",
		},
		{
			name:    "network error",
			stub:    &stubGenerator{err: errors.New("dial tcp: timeout")},
			kind:    analysis.ErrAnalysisTransportFailed,
			message: "Gemini analysis failed: dial tcp: timeout",
		},
		{
			name:    "empty response",
			stub:    &stubGenerator{err: ErrEmptyResponse},
			kind:    analysis.ErrAnalysisMalformedResponse,
			message: "Invalid analysis response: empty_body",
		},
		{
			name:    "invalid json",
			stub:    &stubGenerator{response: "I think you should apply!"},
			kind:    analysis.ErrAnalysisMalformedResponse,
			message: "Invalid analysis response: invalid_json",
		},
		{
			name:    "missing score",
			stub:    &stubGenerator{response: `{"decision":"Yes","reason":"ok"}`},
			kind:    analysis.ErrAnalysisMalformedResponse,
			message: "Invalid analysis response: missing_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			analyzer := NewAnalyzer(tt.stub, 10, nil)

			_, err := analyzer.Analyze(context.Background(), "t", "d", "r")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			if !strings.HasPrefix(err.Error(), tt.message) {
				t.Fatalf("expected message %q, got %q", tt.message, err.Error())
			}
			if tt.stub.calls != 1 {
				t.Fatalf("expected a single generation call, got %d", tt.stub.calls)
			}
		})
	}
}
