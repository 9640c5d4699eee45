// Package storagetest provides an in-memory Repository for tests.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

type pair struct {
	listenerID int64
	itemID     int64
}

// FakeRepository is a concurrency-safe in-memory storage.Repository with
// the same uniqueness semantics as the real drivers.
type FakeRepository struct {
	mu             sync.Mutex
	listeners      []storage.Listener
	items          []storage.AuctionItem
	notifications  map[pair]time.Time
	nextListenerID int64
	nextItemID     int64
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		notifications:  make(map[pair]time.Time),
		nextListenerID: 1,
		nextItemID:     1,
	}
}

func (f *FakeRepository) GetActiveListeners(_ context.Context) ([]storage.Listener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var active []storage.Listener
	for _, l := range f.listeners {
		if l.Active {
			active = append(active, l)
		}
	}
	return active, nil
}

func (f *FakeRepository) CreateListener(_ context.Context, email, searchTerm string) (*storage.Listener, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range f.listeners {
		if l.Email == email && l.SearchTerm == searchTerm {
			return nil, false, nil
		}
	}

	l := storage.Listener{
		ID:         f.nextListenerID,
		Email:      email,
		SearchTerm: searchTerm,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}
	f.nextListenerID++
	f.listeners = append(f.listeners, l)
	return &l, true, nil
}

func (f *FakeRepository) GetListenersByEmail(_ context.Context, email string) ([]storage.Listener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []storage.Listener
	for _, l := range f.listeners {
		if l.Email == email && l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeRepository) DeactivateListener(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, l := range f.listeners {
		if l.ID == id && l.Active {
			f.listeners[i].Active = false
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeRepository) URLExists(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.items {
		if it.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeRepository) SaveItem(_ context.Context, item *storage.AuctionItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.items {
		if it.URL == item.URL {
			return false, nil
		}
	}

	item.ID = f.nextItemID
	f.nextItemID++
	item.ScrapedAt = time.Now().UTC()
	f.items = append(f.items, *item)
	return true, nil
}

func (f *FakeRepository) CountItems(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

func (f *FakeRepository) GetItemsSince(_ context.Context, since time.Time) ([]storage.AuctionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []storage.AuctionItem
	for _, it := range f.items {
		if !it.ScrapedAt.Before(since) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeRepository) AlreadySent(_ context.Context, listenerID, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.notifications[pair{listenerID, itemID}]
	return ok, nil
}

func (f *FakeRepository) RecordSent(_ context.Context, listenerID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := pair{listenerID, itemID}
	if _, ok := f.notifications[key]; !ok {
		f.notifications[key] = time.Now().UTC()
	}
	return nil
}

func (f *FakeRepository) CountNotifications(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notifications), nil
}

func (f *FakeRepository) Close() error { return nil }
