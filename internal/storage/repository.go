package storage

import (
	"context"
	"time"
)

// Listener is a registered (email, search term) subscription. The pair is
// unique; deletion flips Active to false so notification history keeps its
// references.
type Listener struct {
	ID         int64
	Email      string
	SearchTerm string
	CreatedAt  time.Time
	Active     bool
}

// AuctionItem is a scraped lot. Identity is the URL; rows are immutable
// once saved, even if the site content changes afterwards.
type AuctionItem struct {
	ID          int64
	Title       string
	URL         string
	Description string
	Price       string
	EndTime     string
	ImageURL    string
	ScrapedAt   time.Time
}

// Repository is the persistence contract for listeners, items and the
// sent-notification log. Duplicate inserts report (false, nil), never an
// error, so callers can treat "already exists" as data.
type Repository interface {
	// GetActiveListeners returns all listeners with active = true.
	GetActiveListeners(ctx context.Context) ([]Listener, error)

	// CreateListener inserts a listener, returning created=false when the
	// (email, search_term) pair already exists.
	CreateListener(ctx context.Context, email, searchTerm string) (listener *Listener, created bool, err error)

	// GetListenersByEmail returns the active listeners for one address.
	GetListenersByEmail(ctx context.Context, email string) ([]Listener, error)

	// DeactivateListener soft-deletes a listener. Returns false when no
	// active listener has that id.
	DeactivateListener(ctx context.Context, id int64) (bool, error)

	// URLExists reports whether an item with this URL was already saved.
	URLExists(ctx context.Context, url string) (bool, error)

	// SaveItem inserts an item and fills in its ID. Returns inserted=false
	// on a duplicate URL; the stored row is left untouched.
	SaveItem(ctx context.Context, item *AuctionItem) (inserted bool, err error)

	// CountItems returns the total number of stored items.
	CountItems(ctx context.Context) (int, error)

	// GetItemsSince returns items scraped at or after the given instant,
	// newest first. The orchestrator re-examines these so a failed send is
	// retried on later runs.
	GetItemsSince(ctx context.Context, since time.Time) ([]AuctionItem, error)

	// AlreadySent reports whether a notification record exists for the
	// (listener, item) pair.
	AlreadySent(ctx context.Context, listenerID, itemID int64) (bool, error)

	// RecordSent appends a notification record. A duplicate pair is not an
	// error; the existing record stands.
	RecordSent(ctx context.Context, listenerID, itemID int64) error

	// CountNotifications returns the total number of sent notifications.
	CountNotifications(ctx context.Context) (int, error)

	Close() error
}
