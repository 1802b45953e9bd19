package page

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserLoader renders the page in headless Chrome and captures the DOM after
// scripts ran. Chrome or Chromium must be installed.
type BrowserLoader struct {
	Timeout time.Duration
	// Settle is how long to wait after the body is ready for client side rendering.
	Settle    time.Duration
	UserAgent string
	Logger    *zap.Logger
}

func NewBrowserLoader(userAgent string, timeout time.Duration, logger *zap.Logger) *BrowserLoader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BrowserLoader{
		Timeout:   timeout,
		Settle:    2 * time.Second,
		UserAgent: userAgent,
		Logger:    logger,
	}
}

func (l *BrowserLoader) Load(ctx context.Context, location string) (*Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, l.Timeout)
	defer cancel()

	l.Logger.Debug("rendering page in browser", zap.String("url", location))

	var html, current string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(location),
		chromedp.WaitReady("body"),
		chromedp.Sleep(l.Settle),
		chromedp.Location(&current),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{Location: location, Message: "browser rendering failed", Cause: err}
	}

	if current == "" {
		current = location
	}

	l.Logger.Debug("page rendered", zap.String("url", current), zap.Int("bytes", len(html)))

	return parse(current, html)
}
