// Package orchestrator runs the two stage analysis pipeline: resume text
// extraction followed by job fit analysis.
package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/ai"
	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/logger"
	"github.com/spigell/wingman/internal/utils"
)

// State is the position of one pipeline run.
type State string

const (
	StateIdle          State = "Idle"
	StateUploading     State = "Uploading"
	StateExtractedText State = "ExtractedText"
	StateAnalyzing     State = "Analyzing"
	StateSucceeded     State = "Succeeded"
	StateFailed        State = "Failed"
)

const previewLength = 200

// Orchestrator holds no state between runs and is safe for concurrent use.
type Orchestrator struct {
	extractor ai.TextExtractor
	analyzer  ai.Analyzer
	logger    *zap.Logger
}

func New(extractor ai.TextExtractor, analyzer ai.Analyzer, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		extractor: extractor,
		analyzer:  analyzer,
		logger:    log,
	}
}

// AnalyzeResume uploads the resume, then analyzes its text against the job.
// Any failure ends the run with the originating *analysis.Error; nothing is retried.
func (o *Orchestrator) AnalyzeResume(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	r := o.newRun()

	r.enter(StateUploading,
		zap.String("file_name", req.ResumeFileName),
		zap.Int("file_size", len(req.Resume)),
	)

	extracted, err := o.extractor.ExtractResumeText(ctx, req.Resume, req.ResumeFileName)
	if err != nil {
		return nil, r.fail(err)
	}
	if extracted == nil {
		return nil, r.fail(analysis.ExtractionFailed("Resume text extraction returned nothing", nil))
	}

	r.enter(StateExtractedText, utils.PreviewFields("resume_text", extracted.Text, previewLength)...)

	r.enter(StateAnalyzing,
		zap.String("job_title", req.JobTitle),
		zap.Int("job_description_length", len(req.JobDescription)),
	)

	result, err := o.analyzer.Analyze(ctx, req.JobTitle, req.JobDescription, extracted.Text)
	if err == nil && result == nil {
		err = analysis.Malformed(analysis.ReasonEmptyBody, "")
	}
	if err != nil {
		return nil, r.fail(err)
	}

	if violations := result.Violations(); len(violations) > 0 {
		r.logger.Warn("analysis result violates expected properties",
			zap.Any("violations", violations),
			zap.Int("score", result.Score),
			zap.String("decision", string(result.Decision)),
		)
	}

	if result.EnforceCoverLetter() {
		r.logger.Warn("cover letter dropped",
			zap.String("decision", string(result.Decision)),
			zap.Int("score", result.Score),
		)
	}

	r.enter(StateSucceeded,
		zap.String("decision", string(result.Decision)),
		zap.Int("score", result.Score),
	)

	return result, nil
}

type run struct {
	state  State
	logger *zap.Logger
}

func (o *Orchestrator) newRun() *run {
	id := uuid.NewString()

	return &run{
		state:  StateIdle,
		logger: logger.WithFields(o.logger, logger.PipelineFields(id, "")...),
	}
}

func (r *run) enter(state State, fields ...zap.Field) {
	from := r.state
	r.state = state

	fields = append([]zap.Field{
		zap.String("from", string(from)),
		zap.String(logger.FieldStage, string(state)),
	}, fields...)
	r.logger.Debug("pipeline state changed", fields...)
}

// fail moves the run to Failed. Errors that are not pipeline errors already
// are classified by the stage they happened in.
func (r *run) fail(err error) error {
	stage := r.state

	pipelineErr, ok := analysis.AsError(err)
	if !ok {
		switch stage {
		case StateUploading:
			pipelineErr = analysis.UploadFailed(err.Error(), err)
		default:
			pipelineErr = analysis.AnalysisTransportFailed(err.Error(), err)
		}
	}

	fields := []zap.Field{
		zap.String("failed_stage", string(stage)),
		zap.String("kind", string(pipelineErr.Kind)),
		zap.Error(err),
	}
	if pipelineErr.Reason != "" {
		fields = append(fields, zap.String("reason", string(pipelineErr.Reason)))
	}
	if pipelineErr.Raw != "" {
		fields = append(fields, zap.String("raw_preview", utils.TruncateForLog(pipelineErr.Raw, previewLength)))
	}

	r.enter(StateFailed, fields...)

	return pipelineErr
}
