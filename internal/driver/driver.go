// Package driver is the user facing side of the pipeline: it pre-fills the
// form from the page, submits analyses and renders their outcome.
package driver

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/job"
	"github.com/spigell/wingman/internal/orchestrator"
)

const (
	// UntitledJob is the title used when the page has text but no title.
	UntitledJob = "Untitled Job"

	MissingInputMessage = "Job description and Resume are both required"
)

var (
	ErrMissingInput = errors.New(MissingInputMessage)
	// ErrSuperseded is returned to a submission replaced by a newer one.
	ErrSuperseded = errors.New("submission superseded by a newer one")
	ErrEmptyReply = errors.New("analysis reply carried neither result nor error")
)

// Requester sends a message to a named context and decodes the single reply.
type Requester interface {
	Request(ctx context.Context, to, msgType string, payload, out any) error
}

// Renderer displays driver output. For every submission exactly one of
// RenderResult or RenderError is called, unless the submission was superseded.
type Renderer interface {
	RenderPrefill(title, description string)
	RenderResult(result *analysis.Result)
	RenderError(message string)
}

// Form is the user input of one submission.
type Form struct {
	JobTitle       string
	JobDescription string
	ResumeFileName string
	Resume         []byte
}

// Contexts names the endpoints the driver talks to.
type Contexts struct {
	Page       string
	Background string
}

type Driver struct {
	requester Requester
	renderer  Renderer
	contexts  Contexts
	logger    *zap.Logger

	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

func New(requester Requester, renderer Renderer, contexts Contexts, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		requester: requester,
		renderer:  renderer,
		contexts:  contexts,
		logger:    logger,
	}
}

// Prefill asks the page for its posting. When the page has description text,
// the form is pre-filled and the posting returned with its title defaulted.
// A page that cannot be reached leaves the form empty.
func (d *Driver) Prefill(ctx context.Context) (job.Posting, error) {
	var reply job.ExtractReply
	if err := d.requester.Request(ctx, d.contexts.Page, job.MessageExtract, nil, &reply); err != nil {
		d.logger.Warn("could not read the job from the page", zap.Error(err))
		return job.Posting{}, err
	}

	posting := reply.Job
	if posting.Text == "" {
		d.logger.Info("page has no job description", zap.String("url", posting.URL))
		return posting, nil
	}

	if posting.Title == "" {
		posting.Title = UntitledJob
	}

	d.renderer.RenderPrefill(posting.Title, posting.Text)

	return posting, nil
}

// Submit validates the form and runs one analysis. A later Submit cancels the
// wait of an earlier one, whose outcome is then never rendered.
func (d *Driver) Submit(ctx context.Context, form Form) (*analysis.Result, error) {
	if strings.TrimSpace(form.JobDescription) == "" || len(form.Resume) == 0 {
		d.renderer.RenderError(MissingInputMessage)
		return nil, ErrMissingInput
	}

	ctx, id := d.begin(ctx)
	defer d.end(id)

	payload := orchestrator.AnalyzePayload{
		JobTitle:       form.JobTitle,
		JobDescription: form.JobDescription,
		FileName:       form.ResumeFileName,
		FileBase64:     base64.StdEncoding.EncodeToString(form.Resume),
	}

	d.logger.Debug("submitting analysis",
		zap.Uint64("submission", id),
		zap.String("file_name", form.ResumeFileName),
	)

	var reply orchestrator.AnalyzeReply
	err := d.requester.Request(ctx, d.contexts.Background, orchestrator.MessageAnalyzeResume, payload, &reply)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != id {
		d.logger.Debug("dropping outcome of superseded submission", zap.Uint64("submission", id))
		return nil, ErrSuperseded
	}

	switch {
	case err != nil:
		d.renderer.RenderError(err.Error())
		return nil, err
	case reply.Error != "":
		d.renderer.RenderError(reply.Error)
		return nil, &ReplyError{Message: reply.Error}
	case reply.Result == nil:
		d.renderer.RenderError(ErrEmptyReply.Error())
		return nil, ErrEmptyReply
	}

	d.renderer.RenderResult(reply.Result)

	return reply.Result, nil
}

// begin makes the submission current and cancels the previous one.
func (d *Driver) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	d.current++
	d.cancel = cancel

	return ctx, d.current
}

func (d *Driver) end(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == id && d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// ReplyError is a failure reported by the background context.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}
