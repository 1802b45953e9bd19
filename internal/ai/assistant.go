package ai

import (
	"context"

	"github.com/spigell/wingman/internal/analysis"
)

// Analyzer produces a fit analysis for a job posting and the extracted resume text.
type Analyzer interface {
	Analyze(ctx context.Context, jobTitle, jobDescription, extractedText string) (*analysis.Result, error)
}

// TextExtractor turns an uploaded resume file into plain text.
type TextExtractor interface {
	ExtractResumeText(ctx context.Context, file []byte, fileName string) (*analysis.ExtractedResumeText, error)
}
