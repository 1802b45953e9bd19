package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/utils"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5000"
	userAgent      = "spigell/wingman"

	ExtractTextPath = "/extract/text"
	AnalyzePath     = "/analyze"

	uploadField = "file"

	fallbackUploadMessage   = "File upload failed"
	fallbackAnalysisMessage = "Analysis request failed"

	defaultMaxLogLength = 200
)

// Config holds the injected service settings. A zero Timeout leaves the
// transport defaults in place.
type Config struct {
	BaseURL      string
	Credential   string
	UserAgent    string
	Timeout      time.Duration
	MaxLogLength int
}

// Client talks to the resume text extraction and analysis services.
type Client struct {
	baseURL    string
	credential string
	logger     *zap.Logger
	maxLogLen  int
	HTTPClient *http.Client
	UserAgent  string
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = userAgent
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		baseURL:    baseURL,
		credential: strings.TrimSpace(cfg.Credential),
		logger:     logger,
		maxLogLen:  maxLogLen,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		UserAgent: ua,
	}
}

type extractTextResponse struct {
	Text *string `json:"text"`
}

// ExtractResumeText uploads the resume file and returns the text the
// extraction service found in it.
func (c *Client) ExtractResumeText(ctx context.Context, file []byte, fileName string) (*analysis.ExtractedResumeText, error) {
	url := c.baseURL + ExtractTextPath

	status, data, err := c.postMultipartFile(ctx, url, uploadField, fileName, file)
	if err != nil {
		return nil, analysis.UploadFailed(fmt.Sprintf("%s: %v", fallbackUploadMessage, err), err)
	}

	if !isSuccess(status) {
		c.logger.Warn("extraction service rejected the upload",
			zap.Int("status", status),
			zap.String("response_preview", utils.TruncateForLog(string(data), c.maxLogLen)),
		)
		return nil, analysis.UploadFailed(serviceMessage(data, fallbackUploadMessage), fmt.Errorf("bad status: %d", status))
	}

	var response extractTextResponse
	if err := decodeJSON(data, &response); err != nil {
		return nil, analysis.ExtractionFailed("Text extraction returned an unreadable response", err)
	}

	if response.Text == nil {
		return nil, analysis.UploadFailed(serviceMessage(data, fallbackUploadMessage), fmt.Errorf("extraction response has no text field"))
	}

	// Blank text still goes on to analysis; the analyzer decides what it means.
	text := *response.Text
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("extraction service found no text in the resume", zap.String("file_name", fileName))
	}

	c.logger.Debug("resume text extracted",
		zap.String("file_name", fileName),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	return &analysis.ExtractedResumeText{Text: text}, nil
}

type analyzeRequest struct {
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	ExtractedText  string `json:"extractedText"`
}

// Analyze asks the analysis service for a fit decision.
func (c *Client) Analyze(ctx context.Context, jobTitle, jobDescription, extractedText string) (*analysis.Result, error) {
	url := c.baseURL + AnalyzePath

	status, data, err := c.postJSON(ctx, url, analyzeRequest{
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
		ExtractedText:  extractedText,
	})
	if err != nil {
		return nil, analysis.AnalysisTransportFailed(fmt.Sprintf("%s: %v", fallbackAnalysisMessage, err), err)
	}

	if !isSuccess(status) {
		fallback := fmt.Sprintf("%s: status %d", fallbackAnalysisMessage, status)
		return nil, analysis.AnalysisTransportFailed(serviceMessage(data, fallback), fmt.Errorf("bad status: %d", status))
	}

	c.logger.Debug("analysis service response", utils.PreviewFields("response", string(data), c.maxLogLen)...)

	result, err := analysis.Decode(data)
	if err != nil {
		c.logger.Warn("analysis response could not be decoded",
			append(utils.PreviewFields("response", string(data), c.maxLogLen), zap.Error(err))...,
		)
		return nil, err
	}

	return result, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
