package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/TheOneAtFault/auction-monitor/internal/config"
	"github.com/TheOneAtFault/auction-monitor/internal/extract"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

// BasicStrategy issues plain HTTP GETs without JavaScript rendering.
// Dynamic listings may be missing from the markup it sees; extraction is
// best-effort.
type BasicStrategy struct {
	client  *http.Client
	cfg     *config.Config
	engine  *extract.Engine
	logger  *observability.Logger
	baseURL string
}

func NewBasicStrategy(cfg *config.Config, logger *observability.Logger) *BasicStrategy {
	client := &http.Client{
		Timeout: cfg.GetHTTPTimeout(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &BasicStrategy{
		client:  client,
		cfg:     cfg,
		engine:  extract.NewEngine(cfg.BaseURL, logger),
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

func (s *BasicStrategy) Name() string { return "basic" }

func (s *BasicStrategy) FetchResults(ctx context.Context, term string) ([]extract.Candidate, error) {
	// Politeness delay so successive term fetches don't hammer the origin.
	if err := s.sleepJittered(ctx); err != nil {
		return nil, err
	}

	target := searchURL(s.baseURL, term)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.Scraper.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", s.baseURL+"/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", "error", err.Error())
		}
	}()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Non-200 response for search term",
			"term", term,
			"status", resp.StatusCode,
			"url", target,
		)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	candidates := s.engine.Extract(string(body), target, s.cfg.Scraper.MaxResultsBasic)
	s.logger.Info("Basic extraction complete", "term", term, "candidates", len(candidates))
	return candidates, nil
}

func (s *BasicStrategy) sleepJittered(ctx context.Context) error {
	min := s.cfg.GetRequestDelayMin()
	max := s.cfg.GetRequestDelayMax()
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BasicStrategy) Close() error { return nil }
