package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Analyzer asks Gemini directly for the fit analysis instead of going through
// the analysis service.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	fallbackMessage     = "Gemini analysis failed"
)

func NewAnalyzer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, jobTitle, jobDescription, extractedText string) (*analysis.Result, error) {
	prompt := buildPrompt(jobTitle, jobDescription, extractedText)

	a.logger.Debug("gemini generate content request",
		append(utils.PreviewFields("prompt", prompt, a.maxLogLen), zap.String("job_title", jobTitle))...,
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if errors.Is(err, ErrEmptyResponse) {
		return nil, analysis.Malformed(analysis.ReasonEmptyBody, "")
	}
	if err != nil {
		return nil, analysis.AnalysisTransportFailed(transportMessage(err), err)
	}

	a.logger.Debug("gemini generate content response", utils.PreviewFields("response", raw, a.maxLogLen)...)

	result, err := analysis.DecodeText(raw)
	if err != nil {
		a.logger.Warn("gemini response could not be decoded",
			append(utils.PreviewFields("response", raw, a.maxLogLen), zap.Error(err))...,
		)
		return nil, err
	}

	return result, nil
}

func buildPrompt(jobTitle, jobDescription, resumeText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job title:\n{{JOB_TITLE}}\n\nJob description:\n{{JOB_DESCRIPTION}}\n\nResume:\n{{RESUME_TEXT}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{JOB_TITLE}}", strings.TrimSpace(jobTitle),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription),
		"{{RESUME_TEXT}}", strings.TrimSpace(resumeText),
	)
	return replacer.Replace(template)
}

// transportMessage prefers the message reported by the API.
func transportMessage(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return strings.TrimSpace(apiErr.Message)
	}
	return fmt.Sprintf("%s: %v", fallbackMessage, err)
}
