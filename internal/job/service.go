package job

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/bus"
	"github.com/spigell/wingman/internal/utils"
)

// MessageExtract asks the page context for the posting it displays. It carries no payload.
const MessageExtract = "EXTRACT_JOB"

// ExtractReply is the reply to MessageExtract.
type ExtractReply struct {
	Job Posting `json:"job"`
}

// Service answers extraction requests for one loaded document.
type Service struct {
	doc    *goquery.Document
	url    string
	logger *zap.Logger
}

func NewService(doc *goquery.Document, url string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{doc: doc, url: url, logger: logger}
}

// Register installs the service handlers on the endpoint.
func (s *Service) Register(e *bus.Endpoint) {
	e.Handle(MessageExtract, s.handleExtract)
}

func (s *Service) handleExtract(_ context.Context, _ bus.Message, respond bus.Respond) {
	posting := Extract(s.doc, s.url)

	fields := []zap.Field{zap.String("url", posting.URL), zap.String("title", posting.Title)}
	fields = append(fields, utils.PreviewFields("text", posting.Text, 120)...)
	s.logger.Debug("job extracted", fields...)

	respond(ExtractReply{Job: posting})
}
