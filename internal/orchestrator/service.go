package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/bus"
)

// MessageAnalyzeResume asks the background context to run the pipeline.
const MessageAnalyzeResume = "ANALYZE_RESUME"

// AnalyzePayload is the body of MessageAnalyzeResume.
type AnalyzePayload struct {
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	FileName       string `json:"fileName"`
	FileBase64     string `json:"fileBase64"`
}

// AnalyzeReply carries exactly one of Result or Error.
type AnalyzeReply struct {
	Result *analysis.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Service exposes the orchestrator on the background endpoint. Each request
// runs in its own goroutine and replies once the pipeline finished, so the
// endpoint keeps serving while analyses are in flight.
type Service struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
	inflight     sync.WaitGroup
}

func NewService(o *Orchestrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{orchestrator: o, logger: logger}
}

// Register installs the service handlers on the endpoint.
func (s *Service) Register(e *bus.Endpoint) {
	e.Handle(MessageAnalyzeResume, s.handleAnalyze)
}

// Wait blocks until every started pipeline replied. It must not be called
// while the endpoint still dispatches messages.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// handleAnalyze runs under the endpoint lifetime: a caller that stops waiting
// does not cancel the pipeline, its reply is dropped instead.
func (s *Service) handleAnalyze(ctx context.Context, msg bus.Message, respond bus.Respond) {
	var payload AnalyzePayload
	if err := msg.Decode(&payload); err != nil {
		s.reject(msg, respond, analysis.UploadFailed("invalid request payload", err))
		return
	}

	resume, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload.FileBase64))
	if err != nil {
		s.reject(msg, respond, analysis.UploadFailed("invalid file encoding", err))
		return
	}

	req := analysis.Request{
		JobTitle:       payload.JobTitle,
		JobDescription: payload.JobDescription,
		ResumeFileName: payload.FileName,
		Resume:         resume,
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		result, err := s.orchestrator.AnalyzeResume(ctx, req)
		if err != nil {
			respond(AnalyzeReply{Error: err.Error()})
			return
		}

		respond(AnalyzeReply{Result: result})
	}()
}

func (s *Service) reject(msg bus.Message, respond bus.Respond, err *analysis.Error) {
	s.logger.Warn("rejecting analyze request",
		zap.String("id", msg.ID),
		zap.String("kind", string(err.Kind)),
		zap.Error(err.Err),
	)
	respond(AnalyzeReply{Error: err.Error()})
}
