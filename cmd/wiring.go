package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/ai"
	"github.com/spigell/wingman/internal/ai/gemini"
	"github.com/spigell/wingman/internal/bus"
	"github.com/spigell/wingman/internal/host"
	"github.com/spigell/wingman/internal/job"
	"github.com/spigell/wingman/internal/logger"
	"github.com/spigell/wingman/internal/orchestrator"
	"github.com/spigell/wingman/internal/page"
	"github.com/spigell/wingman/internal/remote"
	"github.com/spigell/wingman/internal/secrets"
)

var errNoPage = errors.New("either --url or --page-file is required")

// pageSource is where the job page comes from.
type pageSource struct {
	URL  string
	File string
}

func (s pageSource) empty() bool {
	return strings.TrimSpace(s.URL) == "" && strings.TrimSpace(s.File) == ""
}

func loadPage(ctx context.Context, cfg *PageConfig, src pageSource, log *zap.Logger) (*page.Page, error) {
	if strings.TrimSpace(src.File) != "" {
		return page.FileLoader{URL: src.URL}.Load(ctx, src.File)
	}

	if strings.TrimSpace(src.URL) == "" {
		return nil, errNoPage
	}

	var loader page.Loader
	switch strings.ToLower(strings.TrimSpace(cfg.Loader)) {
	case "", loaderHTTP:
		loader = page.NewHTTPLoader(cfg.UserAgent, cfg.Timeout, log)
	case loaderBrowser:
		loader = page.NewBrowserLoader(cfg.UserAgent, cfg.Timeout, log)
	default:
		return nil, fmt.Errorf("unsupported page loader: %s", cfg.Loader)
	}

	return loader.Load(ctx, src.URL)
}

// newHost wires the page and background contexts onto a fresh bus. The page
// context is only hosted when a page was loaded.
func newHost(p *page.Page, background host.Service, log *zap.Logger) (*host.Host, error) {
	h := host.New(bus.New(log.Named("bus")), log)

	if p != nil {
		svc := job.NewService(p.Document, p.URL, logger.ForContext(log, host.ContextPage))
		if err := h.Context(host.ContextPage, svc); err != nil {
			return nil, err
		}
	}

	if background != nil {
		if err := h.Context(host.ContextBackground, background); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func newOrchestrator(ctx context.Context, cfg *Config, log *zap.Logger) (*orchestrator.Orchestrator, error) {
	credential, err := secrets.Load(secrets.Source{
		Name:     "service credential",
		Value:    cfg.Service.Credential,
		Env:      "WINGMAN_SERVICE_CREDENTIAL",
		File:     cfg.Service.CredentialFile,
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	background := logger.ForContext(log, host.ContextBackground)

	client := remote.New(remote.Config{
		BaseURL:      cfg.Service.BaseURL,
		Credential:   credential,
		Timeout:      cfg.Service.Timeout,
		MaxLogLength: cfg.Service.MaxLogLength,
	}, logger.WithCommonFields(background, providerService, ""))

	analyzer, err := newAnalyzer(ctx, cfg.Analyzer, client, background)
	if err != nil {
		return nil, fmt.Errorf("building analyzer: %w", err)
	}

	return orchestrator.New(client, analyzer, background), nil
}

func newAnalyzer(ctx context.Context, cfg *AnalyzerConfig, service ai.Analyzer, log *zap.Logger) (ai.Analyzer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", providerService:
		log.Debug("analysis through the service", zap.String(logger.FieldProvider, providerService))
		return service, nil
	case providerGemini:
		return newGeminiAnalyzer(ctx, cfg.Gemini, log)
	default:
		return nil, fmt.Errorf("unsupported analyzer provider: %s", cfg.Provider)
	}
}

func newGeminiAnalyzer(ctx context.Context, cfg *GeminiConfig, log *zap.Logger) (ai.Analyzer, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		Env:  "GEMINI_API_KEY",
		File: cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set analyzer.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.GeneratorOptions{
		Model:       cfg.Model,
		JSONMode:    cfg.JSONMode,
		Temperature: cfg.Temperature,
	}, log)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithCommonFields(log, providerGemini, generator.Model())

	return gemini.NewAnalyzer(generator, cfg.MaxLogLength, genLogger), nil
}
