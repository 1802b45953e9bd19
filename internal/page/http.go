package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; wingman/1.0)"

	maxPageSize = 10 << 20
)

// HTTPLoader fetches the raw HTML of a page without running its scripts.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
}

func NewHTTPLoader(userAgent string, timeout time.Duration, logger *zap.Logger) *HTTPLoader {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPLoader{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Logger:    logger,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, location string) (*Page, error) {
	parsed, err := url.Parse(location)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{Location: location, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &Error{Location: location, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, &Error{Location: location, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &Error{Location: location, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Location: location, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	// Redirects change the location the posting is reported under.
	final := location
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	l.Logger.Debug("page fetched",
		zap.String("url", final),
		zap.Int("bytes", len(body)),
		zap.String("content_type", resp.Header.Get("Content-Type")),
	)

	return parse(final, string(body))
}
