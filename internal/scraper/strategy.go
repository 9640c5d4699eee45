// Package scraper fetches auction search results and computes the set of
// items not seen in earlier runs. Two fetch strategies share one contract:
// a headless-browser variant that renders JavaScript and a plain HTTP
// variant used when no browser is available.
package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/TheOneAtFault/auction-monitor/internal/config"
	"github.com/TheOneAtFault/auction-monitor/internal/extract"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

// Strategy fetches the result page for one exact search term and returns
// the extracted candidates. Implementations own their fetch mechanics; the
// per-run merge/dedupe/persist step lives in Scraper.
type Strategy interface {
	Name() string
	FetchResults(ctx context.Context, term string) ([]extract.Candidate, error)
	Close() error
}

// searchURL builds {base}/lots?search={term}&lots_range=upcoming with
// spaces encoded as '+'.
func searchURL(baseURL, term string) string {
	return strings.TrimRight(baseURL, "/") +
		"/lots?search=" + url.QueryEscape(strings.TrimSpace(term)) +
		"&lots_range=upcoming"
}

// SelectStrategy picks the fetch strategy once at startup: the rendering
// strategy when it is enabled and a browser can actually be launched,
// otherwise the basic HTTP strategy. There is no re-probing at runtime.
func SelectStrategy(cfg *config.Config, logger *observability.Logger) Strategy {
	if cfg.Scraper.RenderEnabled {
		browser, err := NewBrowserStrategy(cfg, logger)
		if err == nil {
			logger.Info("Using rendering scraper", "strategy", browser.Name())
			return browser
		}
		logger.Warn("Rendering backend unavailable, falling back to basic scraper",
			"error", err.Error(),
		)
	}
	basic := NewBasicStrategy(cfg, logger)
	logger.Info("Using basic scraper", "strategy", basic.Name())
	return basic
}
