package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/TheOneAtFault/auction-monitor/internal/config"
	"github.com/TheOneAtFault/auction-monitor/internal/extract"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

// BrowserStrategy drives one headless browser for the whole process
// lifetime and hands fully rendered markup to the extraction engine. The
// browser handle is not safe for concurrent runs; the orchestrator's
// single-run lock covers that.
type BrowserStrategy struct {
	browser *rod.Browser
	cfg     *config.Config
	engine  *extract.Engine
	logger  *observability.Logger
	baseURL string
}

func NewBrowserStrategy(cfg *config.Config, logger *observability.Logger) (*BrowserStrategy, error) {
	bin := cfg.Scraper.ChromePath
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return nil, fmt.Errorf("no browser binary found on this host")
		}
		bin = found
	}

	l := launcher.New().
		Bin(bin).
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080").
		Set("user-agent", cfg.Scraper.UserAgent)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Headless browser initialized", "bin", bin)

	return &BrowserStrategy{
		browser: browser,
		cfg:     cfg,
		engine:  extract.NewEngine(cfg.BaseURL, logger),
		logger:  logger,
		baseURL: cfg.BaseURL,
	}, nil
}

func (s *BrowserStrategy) Name() string { return "browser" }

func (s *BrowserStrategy) FetchResults(ctx context.Context, term string) ([]extract.Candidate, error) {
	target := searchURL(s.baseURL, term)

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warn("Failed to close page", "error", err.Error())
		}
	}()

	page = page.Context(ctx)

	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	// Bounded wait for the document-ready signal; on timeout we proceed
	// with whatever has rendered so far.
	if err := page.Timeout(s.cfg.GetPageTimeout()).WaitLoad(); err != nil {
		s.logger.Warn("Page load wait timed out, proceeding", "term", term, "url", target)
	}

	// Fixed settle delay for late dynamic content.
	if err := sleepCtx(ctx, s.cfg.GetSettleDelay()); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered markup: %w", err)
	}

	candidates := s.engine.Extract(html, target, s.cfg.Scraper.MaxResultsRender)
	s.logger.Info("Rendered extraction complete", "term", term, "candidates", len(candidates))
	return candidates, nil
}

func (s *BrowserStrategy) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
