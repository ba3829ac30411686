package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campuslink/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetails struct {
	mu      sync.Mutex
	fetches int
	fail    error
}

func (fd *fakeDetails) fetch(ctx context.Context, kind pagination.Kind, id string) (*pagination.Detail, error) {
	fd.mu.Lock()
	fd.fetches++
	n := fd.fetches
	fail := fd.fail
	fd.mu.Unlock()

	if fail != nil {
		return nil, fail
	}

	caption := fmt.Sprintf("full caption of %s (fetch %d)", id, n)
	comments := 7
	return &pagination.Detail{
		Kind:     kind,
		ID:       id,
		Caption:  &caption,
		Comments: &comments,
	}, nil
}

func (fd *fakeDetails) count() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.fetches
}

func newDetailEnv(t *testing.T) (*testEnv, *fakeDetails) {
	t.Helper()
	fd := &fakeDetails{}
	env := &testEnv{store: newFakeStore(), clock: newFakeClock()}
	env.client = New(Options{
		FetchPage:       env.store.fetchPage,
		FetchDetail:     fd.fetch,
		Now:             env.clock.Now,
		Sleep:           func(ctx context.Context, d time.Duration) error { return nil },
		JanitorInterval: time.Hour,
	})
	t.Cleanup(env.client.Close)
	return env, fd
}

func TestItemDetailsFetchesAndCaches(t *testing.T) {
	env, fd := newDetailEnv(t)
	ctx := context.Background()

	detail, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "p1", detail.ID)
	assert.Equal(t, 1, fd.count())

	// Within the freshness window: served from cache.
	again, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)
	assert.Same(t, detail, again)
	assert.Equal(t, 1, fd.count())
}

func TestItemDetailsMergesIntoCachedPages(t *testing.T) {
	env, fd := newDetailEnv(t)
	env.store.seed(pagination.KindPost, 25)
	ctx := context.Background()

	res, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	target := res.Pages[0].Items[3]
	require.Zero(t, target.Comments)

	before := res.Items()

	_, err = env.client.ItemDetails(ctx, pagination.KindPost, target.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fd.count())

	after, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)

	// Same items in the same order; only the target gained detail fields.
	require.Len(t, after.Items(), len(before))
	for i, it := range after.Items() {
		assert.Equal(t, before[i].ID, it.ID, "detail merge must not reorder the list")
		if it.ID == target.ID {
			assert.Equal(t, 7, it.Comments)
			assert.Contains(t, it.Caption, "full caption")
		} else {
			assert.Equal(t, before[i].Comments, it.Comments)
		}
	}
	assert.Equal(t, res.Pages[0].NextCursor, after.Pages[0].NextCursor,
		"detail merge must not disturb cursors")
}

func TestItemDetailsStaleRefreshInBackground(t *testing.T) {
	env, fd := newDetailEnv(t)
	ctx := context.Background()

	first, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)

	env.clock.Advance(DefaultDetailStaleAfter + time.Minute)

	// Stale but under max age: the caller gets the cached copy at once.
	cached, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)
	assert.Same(t, first, cached)

	require.Eventually(t, func() bool {
		return fd.count() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestItemDetailsPastMaxAgeRefetches(t *testing.T) {
	env, fd := newDetailEnv(t)
	ctx := context.Background()

	first, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)

	env.clock.Advance(DefaultDetailMaxAge + time.Minute)

	fresh, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, 2, fd.count())
}

func TestItemDetailsFailureLeavesListAlone(t *testing.T) {
	env, fd := newDetailEnv(t)
	env.store.seed(pagination.KindPost, 25)
	ctx := context.Background()

	res, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	before := res.Items()

	fd.mu.Lock()
	fd.fail = errors.New("detail backend down")
	fd.mu.Unlock()

	_, err = env.client.ItemDetails(ctx, pagination.KindPost, before[0].ID)
	require.Error(t, err)

	after, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	assert.Equal(t, before, after.Items(), "a detail failure must not touch list state")
}

func TestInvalidateItemForcesRefetch(t *testing.T) {
	env, fd := newDetailEnv(t)
	ctx := context.Background()

	_, err := env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)

	env.client.InvalidateItem(pagination.KindPost, "p1")

	_, err = env.client.ItemDetails(ctx, pagination.KindPost, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, fd.count())
}
