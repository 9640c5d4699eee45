package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"), 5000, observability.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})
	return repo
}

func TestCreateListener_DuplicatePairNotInserted(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	l, created, err := repo.CreateListener(ctx, "a@example.com", "bicycle")
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, l)
	assert.True(t, l.Active)

	dup, created, err := repo.CreateListener(ctx, "a@example.com", "bicycle")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, dup)

	// Same email with a different term is a distinct listener.
	_, created, err = repo.CreateListener(ctx, "a@example.com", "watch")
	require.NoError(t, err)
	assert.True(t, created)

	active, err := repo.GetActiveListeners(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestDeactivateListener_SoftDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	l, _, err := repo.CreateListener(ctx, "a@example.com", "lathe")
	require.NoError(t, err)

	ok, err := repo.DeactivateListener(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := repo.GetActiveListeners(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Already inactive, and unknown ids, both report false.
	ok, err = repo.DeactivateListener(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.DeactivateListener(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetListenersByEmail_OnlyActive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, _, err := repo.CreateListener(ctx, "a@example.com", "bicycle")
	require.NoError(t, err)
	_, _, err = repo.CreateListener(ctx, "a@example.com", "watch")
	require.NoError(t, err)
	_, _, err = repo.CreateListener(ctx, "b@example.com", "watch")
	require.NoError(t, err)

	_, err = repo.DeactivateListener(ctx, first.ID)
	require.NoError(t, err)

	listeners, err := repo.GetListenersByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.Equal(t, "watch", listeners[0].SearchTerm)
}

func TestSaveItem_DuplicateURLKeepsStoredRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := &storage.AuctionItem{
		Title: "Diesel generator",
		URL:   "https://live.aucor.com/lots/1",
		Price: "R 5,000",
	}
	inserted, err := repo.SaveItem(ctx, item)
	require.NoError(t, err)
	require.True(t, inserted)
	assert.NotZero(t, item.ID)

	exists, err := repo.URLExists(ctx, item.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	again := &storage.AuctionItem{Title: "Diesel generator rescrape", URL: item.URL}
	inserted, err = repo.SaveItem(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetItemsSince(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := &storage.AuctionItem{Title: "Omega watch", URL: "https://live.aucor.com/lots/2"}
	_, err := repo.SaveItem(ctx, item)
	require.NoError(t, err)

	recent, err := repo.GetItemsSince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Omega watch", recent[0].Title)
	assert.Equal(t, item.ID, recent[0].ID)

	none, err := repo.GetItemsSince(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordSent_PairIsUnique(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	l, _, err := repo.CreateListener(ctx, "a@example.com", "watch")
	require.NoError(t, err)
	item := &storage.AuctionItem{Title: "Omega watch", URL: "https://live.aucor.com/lots/3"}
	_, err = repo.SaveItem(ctx, item)
	require.NoError(t, err)

	sent, err := repo.AlreadySent(ctx, l.ID, item.ID)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.RecordSent(ctx, l.ID, item.ID))
	require.NoError(t, repo.RecordSent(ctx, l.ID, item.ID))

	sent, err = repo.AlreadySent(ctx, l.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, sent)

	count, err := repo.CountNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
