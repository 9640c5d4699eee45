package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOneAtFault/auction-monitor/internal/extract"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
	"github.com/TheOneAtFault/auction-monitor/internal/storage/storagetest"
)

// fakeStrategy serves canned candidates (or errors) per search term.
type fakeStrategy struct {
	results map[string][]extract.Candidate
	errs    map[string]error
	fetched []string
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) FetchResults(_ context.Context, term string) ([]extract.Candidate, error) {
	f.fetched = append(f.fetched, term)
	if err := f.errs[term]; err != nil {
		return nil, err
	}
	return f.results[term], nil
}

func (f *fakeStrategy) Close() error { return nil }

func addListener(t *testing.T, repo *storagetest.FakeRepository, email, term string) storage.Listener {
	t.Helper()
	l, created, err := repo.CreateListener(context.Background(), email, term)
	require.NoError(t, err)
	require.True(t, created)
	return *l
}

func TestGetNewItems_FetchFailureIsolatedPerTerm(t *testing.T) {
	repo := storagetest.NewFakeRepository()
	addListener(t, repo, "a@example.com", "bicycle")
	addListener(t, repo, "b@example.com", "watch")

	strategy := &fakeStrategy{
		results: map[string][]extract.Candidate{
			"watch": {{Title: "Omega watch", URL: "https://live.aucor.com/lots/1"}},
		},
		errs: map[string]error{
			"bicycle": errors.New("render crashed"),
		},
	}

	s := New(strategy, repo, observability.NewNop())
	items, err := s.GetNewItems(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Omega watch", items[0].Title)
	assert.ElementsMatch(t, []string{"bicycle", "watch"}, strategy.fetched)
}

func TestGetNewItems_DeduplicatesURLsWithinRun(t *testing.T) {
	repo := storagetest.NewFakeRepository()
	addListener(t, repo, "a@example.com", "generator")
	addListener(t, repo, "b@example.com", "diesel")

	// Both terms surface the same lot.
	shared := extract.Candidate{Title: "Diesel generator", URL: "https://live.aucor.com/lots/7"}
	strategy := &fakeStrategy{
		results: map[string][]extract.Candidate{
			"generator": {shared, {Title: "Petrol generator", URL: "https://live.aucor.com/lots/8"}},
			"diesel":    {shared},
		},
	}

	s := New(strategy, repo, observability.NewNop())
	items, err := s.GetNewItems(context.Background())

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGetNewItems_FiltersAlreadyStoredURLs(t *testing.T) {
	repo := storagetest.NewFakeRepository()
	addListener(t, repo, "a@example.com", "lathe")

	known := &storage.AuctionItem{Title: "Old lathe", URL: "https://live.aucor.com/lots/9"}
	inserted, err := repo.SaveItem(context.Background(), known)
	require.NoError(t, err)
	require.True(t, inserted)

	strategy := &fakeStrategy{
		results: map[string][]extract.Candidate{
			"lathe": {
				{Title: "Old lathe", URL: "https://live.aucor.com/lots/9"},
				{Title: "New lathe", URL: "https://live.aucor.com/lots/10"},
			},
		},
	}

	s := New(strategy, repo, observability.NewNop())
	items, err := s.GetNewItems(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "New lathe", items[0].Title)
}

func TestGetNewItems_TermsNotDeduplicatedAcrossListeners(t *testing.T) {
	repo := storagetest.NewFakeRepository()
	addListener(t, repo, "a@example.com", "watch")
	addListener(t, repo, "b@example.com", "watch")

	strategy := &fakeStrategy{
		results: map[string][]extract.Candidate{
			"watch": {{Title: "Omega watch", URL: "https://live.aucor.com/lots/1"}},
		},
	}

	s := New(strategy, repo, observability.NewNop())
	items, err := s.GetNewItems(context.Background())

	require.NoError(t, err)
	// Two fetches, one item: the URL dedup absorbs the repeat fetch.
	assert.Equal(t, []string{"watch", "watch"}, strategy.fetched)
	assert.Len(t, items, 1)
}

func TestGetNewItems_NoListeners(t *testing.T) {
	repo := storagetest.NewFakeRepository()
	strategy := &fakeStrategy{}

	s := New(strategy, repo, observability.NewNop())
	items, err := s.GetNewItems(context.Background())

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, strategy.fetched)
}

func TestSearchURL(t *testing.T) {
	tests := []struct {
		base, term, want string
	}{
		{"https://live.aucor.com", "bicycle", "https://live.aucor.com/lots?search=bicycle&lots_range=upcoming"},
		{"https://live.aucor.com/", "road bike", "https://live.aucor.com/lots?search=road+bike&lots_range=upcoming"},
		{"https://live.aucor.com", "  watch  ", "https://live.aucor.com/lots?search=watch&lots_range=upcoming"},
	}

	for _, tt := range tests {
		if got := searchURL(tt.base, tt.term); got != tt.want {
			t.Errorf("searchURL(%q, %q) = %q, want %q", tt.base, tt.term, got, tt.want)
		}
	}
}
