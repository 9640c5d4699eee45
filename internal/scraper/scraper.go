package scraper

import (
	"context"

	"github.com/TheOneAtFault/auction-monitor/internal/extract"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

// Scraper runs the fetch side of a pipeline pass: one result-page fetch per
// listener search term, merged, deduplicated against this run and against
// the item store, with survivors persisted and returned as new items.
type Scraper struct {
	strategy Strategy
	repo     storage.Repository
	logger   *observability.Logger
}

func New(strategy Strategy, repo storage.Repository, logger *observability.Logger) *Scraper {
	return &Scraper{
		strategy: strategy,
		repo:     repo,
		logger:   logger,
	}
}

// StrategyName reports which fetch strategy this scraper runs with.
func (s *Scraper) StrategyName() string { return s.strategy.Name() }

// GetNewItems fetches results for every active listener's exact search term
// and returns the items that were not in the store at run start. Terms are
// intentionally not deduplicated across listeners; the URL dedup below
// absorbs repeat fetches. A failed fetch for one term never aborts the
// remaining terms.
func (s *Scraper) GetNewItems(ctx context.Context) ([]storage.AuctionItem, error) {
	listeners, err := s.repo.GetActiveListeners(ctx)
	if err != nil {
		return nil, err
	}
	if len(listeners) == 0 {
		s.logger.Info("No active listeners, nothing to scrape")
		return nil, nil
	}

	var merged []extract.Candidate
	seen := make(map[string]struct{})

	for _, listener := range listeners {
		term := listener.SearchTerm
		s.logger.Info("Searching for exact term", "term", term, "strategy", s.strategy.Name())

		candidates, err := s.strategy.FetchResults(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("Fetch failed for search term", "term", term, "error", err.Error())
			continue
		}

		for _, c := range candidates {
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			merged = append(merged, c)
		}
	}

	s.logger.Info("Merged candidates across terms", "unique", len(merged))

	var newItems []storage.AuctionItem
	for _, c := range merged {
		exists, err := s.repo.URLExists(ctx, c.URL)
		if err != nil {
			s.logger.Error("Failed to check URL existence", "url", c.URL, "error", err.Error())
			continue
		}
		if exists {
			continue
		}

		item := storage.AuctionItem{
			Title:       c.Title,
			URL:         c.URL,
			Description: c.Description,
			Price:       c.Price,
			EndTime:     c.EndTime,
			ImageURL:    c.ImageURL,
		}
		inserted, err := s.repo.SaveItem(ctx, &item)
		if err != nil {
			s.logger.Error("Failed to save item", "url", c.URL, "error", err.Error())
			continue
		}
		if !inserted {
			// Lost a save race; the item is not new.
			continue
		}

		s.logger.Info("Saved new auction item", "title", item.Title, "url", item.URL)
		newItems = append(newItems, item)
	}

	s.logger.Info("Scrape pass complete", "new_items", len(newItems))
	return newItems, nil
}

// Close releases the underlying fetch strategy's resources.
func (s *Scraper) Close() error {
	return s.strategy.Close()
}
