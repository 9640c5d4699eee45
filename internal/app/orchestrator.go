// Package app wires the scrape-match-notify pipeline to its schedule and
// owns the single-run discipline around it.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/TheOneAtFault/auction-monitor/internal/match"
	"github.com/TheOneAtFault/auction-monitor/internal/notify"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/scraper"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

// Orchestrator runs one pipeline pass: new items from the scraper, matched
// against every active listener's term, notified at most once per
// (listener, item) pair. It is constructed explicitly with its
// collaborators; there is no process-wide instance.
type Orchestrator struct {
	scraper  *scraper.Scraper
	repo     storage.Repository
	notifier notify.Notifier
	logger   *observability.Logger

	// runMu serializes pipeline passes. Scheduled ticks and manual triggers
	// may land concurrently; an overlapping trigger is skipped, never run
	// in parallel. The browser handle and the at-most-once notification
	// invariant both depend on this.
	runMu sync.Mutex
}

func NewOrchestrator(
	s *scraper.Scraper,
	repo storage.Repository,
	notifier notify.Notifier,
	logger *observability.Logger,
) *Orchestrator {
	return &Orchestrator{
		scraper:  s,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// CheckAuctions executes one full pipeline pass. Every failure is absorbed
// here: a pass that goes wrong logs and leaves the scheduler ready for the
// next tick. Returns false when another pass already holds the run lock.
func (o *Orchestrator) CheckAuctions(ctx context.Context) bool {
	if !o.runMu.TryLock() {
		o.logger.Info("Auction check already in progress, skipping trigger")
		return false
	}
	defer o.runMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Auction check panicked", "panic", r)
		}
	}()

	o.logger.Info("Starting auction check", "strategy", o.scraper.StrategyName())

	newItems, err := o.scraper.GetNewItems(ctx)
	if err != nil {
		o.logger.Error("Auction check failed while scraping", "error", err.Error())
		return true
	}

	// A send that failed on an earlier run left no record, and the item is
	// no longer "new" on the next pass. Re-examining the recent window makes
	// the no-record-means-retry contract hold; AlreadySent keeps the pass
	// idempotent for pairs that did go out.
	items := o.withRecentItems(ctx, newItems)
	if len(items) == 0 {
		o.logger.Info("No new auction items found")
		return true
	}

	listeners, err := o.repo.GetActiveListeners(ctx)
	if err != nil {
		o.logger.Error("Failed to load listeners for notification", "error", err.Error())
		return true
	}
	if len(listeners) == 0 {
		o.logger.Info("No active listeners to notify")
		return true
	}

	terms := make([]string, len(listeners))
	for i, l := range listeners {
		terms[i] = l.SearchTerm
	}

	sent := o.notifyMatches(ctx, items, listeners, terms)
	o.logger.Info("Auction check completed",
		"new_items", len(newItems), "examined_items", len(items), "notifications_sent", sent)
	return true
}

// retryWindow bounds how far back a pass re-examines stored items for
// unsent notifications.
const retryWindow = 24 * time.Hour

func (o *Orchestrator) withRecentItems(ctx context.Context, newItems []storage.AuctionItem) []storage.AuctionItem {
	recent, err := o.repo.GetItemsSince(ctx, time.Now().UTC().Add(-retryWindow))
	if err != nil {
		o.logger.Error("Failed to load recent items for retry", "error", err.Error())
		return newItems
	}

	seen := make(map[int64]struct{}, len(newItems))
	items := newItems
	for _, it := range newItems {
		seen[it.ID] = struct{}{}
	}
	for _, it := range recent {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		items = append(items, it)
	}
	return items
}

func (o *Orchestrator) notifyMatches(
	ctx context.Context,
	items []storage.AuctionItem,
	listeners []storage.Listener,
	terms []string,
) int {
	sent := 0
	for _, item := range items {
		matched := match.Terms(item, terms)
		if len(matched) == 0 {
			continue
		}
		o.logger.Info("Item matches search terms", "title", item.Title, "terms", matched)

		matchedSet := make(map[string]struct{}, len(matched))
		for _, term := range matched {
			matchedSet[term] = struct{}{}
		}

		for _, listener := range listeners {
			if _, ok := matchedSet[listener.SearchTerm]; !ok {
				continue
			}

			already, err := o.repo.AlreadySent(ctx, listener.ID, item.ID)
			if err != nil {
				o.logger.Error("Failed to check sent log",
					"listener_id", listener.ID, "item_id", item.ID, "error", err.Error())
				continue
			}
			if already {
				continue
			}

			if err := o.notifier.SendNotification(listener.Email, item, listener.SearchTerm); err != nil {
				// No record on failure: the next run retries this pair.
				o.logger.Error("Failed to send notification",
					"recipient", listener.Email, "title", item.Title, "error", err.Error())
				continue
			}

			if err := o.repo.RecordSent(ctx, listener.ID, item.ID); err != nil {
				o.logger.Error("Failed to record notification",
					"listener_id", listener.ID, "item_id", item.ID, "error", err.Error())
				continue
			}

			sent++
			o.logger.Info("Notification sent", "recipient", listener.Email, "title", item.Title)
		}
	}
	return sent
}

// TriggerCheck starts a pipeline pass in the background and returns
// immediately. Safe to call while a scheduled pass is running; the run
// lock drops the overlap.
func (o *Orchestrator) TriggerCheck(ctx context.Context) {
	go o.CheckAuctions(ctx)
}

// Cleanup is the daily maintenance hook. It performs no destructive action;
// retention pruning can be added here if the store ever needs it.
func (o *Orchestrator) Cleanup(ctx context.Context) {
	o.logger.Info("Running cleanup job")
	o.logger.Info("Cleanup job completed")
}
