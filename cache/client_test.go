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

// fakeClock is a hand-driven clock so staleness windows can be crossed
// without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)}
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.t
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.t = fc.t.Add(d)
}

// fakeStore serves deterministic pages per kind and counts fetches.
type fakeStore struct {
	mu      sync.Mutex
	perKind map[pagination.Kind][]pagination.ListItem
	fetches map[pagination.Kind]int
	fail    error
	failFor int // fail this many calls, then succeed
	gate    chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		perKind: make(map[pagination.Kind][]pagination.ListItem),
		fetches: make(map[pagination.Kind]int),
	}
}

func (fs *fakeStore) seed(kind pagination.Kind, n int) {
	base := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	items := make([]pagination.ListItem, n)
	for i := range items {
		items[i] = pagination.ListItem{
			Kind:      kind,
			ID:        fmt.Sprintf("%s-%03d", kind, n-i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	fs.perKind[kind] = items
}

func (fs *fakeStore) fetchCount(kind pagination.Kind) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.fetches[kind]
}

func (fs *fakeStore) fetchPage(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, pageSize int) (pagination.Page, error) {
	fs.mu.Lock()
	fs.fetches[kind]++
	gate := fs.gate
	var fail error
	if fs.failFor > 0 {
		fs.failFor--
		fail = fs.fail
	} else if fs.failFor == -1 {
		fail = fs.fail
	}
	items := fs.perKind[kind]
	fs.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail != nil {
		return pagination.Page{}, fail
	}

	start := 0
	if cursor != nil {
		for i, it := range items {
			if it.ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return pagination.AssemblePage(items[start:end], pageSize), nil
}

type testEnv struct {
	client *Client
	store  *fakeStore
	clock  *fakeClock
	sleeps []time.Duration
	mu     sync.Mutex
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: newFakeStore(), clock: newFakeClock()}
	env.client = New(Options{
		FetchPage: env.store.fetchPage,
		Now:       env.clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			env.mu.Lock()
			env.sleeps = append(env.sleeps, d)
			env.mu.Unlock()
			return nil
		},
		JanitorInterval: time.Hour, // evictions are driven manually in tests
	})
	t.Cleanup(env.client.Close)
	return env
}

func (env *testEnv) recordedSleeps() []time.Duration {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]time.Duration(nil), env.sleeps...)
}

func TestListMissThenHit(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)

	res, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Len(t, res.Pages[0].Items, 10)
	assert.True(t, res.HasNextPage)
	assert.False(t, res.Stale)
	assert.Equal(t, 1, env.store.fetchCount(pagination.KindPost))

	// Fresh hit: no second fetch.
	res, err = env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)
	assert.Len(t, res.Items(), 10)
	assert.Equal(t, 1, env.store.fetchCount(pagination.KindPost))
}

func TestListConcurrentMissSingleFetch(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	gate := make(chan struct{})
	env.store.gate = gate

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.client.List(context.Background(), pagination.KindPost, 10)
			assert.NoError(t, err)
		}()
	}

	// Give the goroutines time to pile onto the singleflight key.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, env.store.fetchCount(pagination.KindPost),
		"concurrent first-page requests must share one fetch")
}

func TestListStaleWhileRevalidate(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)

	_, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)

	env.clock.Advance(DefaultStaleAfter + time.Second)

	// Stale entry is served immediately; the refresh happens behind it.
	res, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Len(t, res.Items(), 10)

	require.Eventually(t, func() bool {
		return env.store.fetchCount(pagination.KindPost) == 2
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		r, err := env.client.List(context.Background(), pagination.KindPost, 10)
		return err == nil && !r.Stale
	}, time.Second, 5*time.Millisecond)
}

func TestFetchNextPageAppends(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	ctx := context.Background()

	_, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)

	require.NoError(t, env.client.FetchNextPage(ctx, pagination.KindPost, 10))
	require.NoError(t, env.client.FetchNextPage(ctx, pagination.KindPost, 10))

	res, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	assert.Len(t, res.Items(), 25)
	assert.False(t, res.HasNextPage)

	// No duplicate ids across the page chain.
	seen := make(map[string]bool)
	for _, it := range res.Items() {
		assert.False(t, seen[it.ID], "item %s appeared twice", it.ID)
		seen[it.ID] = true
	}

	// Exhausted: another call is a no-op.
	fetches := env.store.fetchCount(pagination.KindPost)
	require.NoError(t, env.client.FetchNextPage(ctx, pagination.KindPost, 10))
	assert.Equal(t, fetches, env.store.fetchCount(pagination.KindPost))
}

func TestPrefetchExtendsOnlyAtTail(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	ctx := context.Background()

	res, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	tailCursor := res.Pages[0].NextCursor
	require.NotNil(t, tailCursor)

	// A cursor that is not the tail's is dropped without fetching.
	bogus := "bm90LXRoZS10YWls"
	require.NoError(t, env.client.Prefetch(ctx, pagination.KindPost, 10, &bogus))
	assert.Equal(t, 1, env.store.fetchCount(pagination.KindPost))

	require.NoError(t, env.client.Prefetch(ctx, pagination.KindPost, 10, tailCursor))
	res, err = env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 2)
}

func TestInvalidateIsScopedToKind(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	env.store.seed(pagination.KindThread, 25)
	ctx := context.Background()

	_, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)
	_, err = env.client.List(ctx, pagination.KindThread, 10)
	require.NoError(t, err)

	env.client.Invalidate(pagination.KindPost)

	require.Eventually(t, func() bool {
		return env.store.fetchCount(pagination.KindPost) == 2
	}, time.Second, 5*time.Millisecond)

	// The thread entry is untouched: still cached, never re-fetched.
	res, err := env.client.List(ctx, pagination.KindThread, 10)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, 1, env.store.fetchCount(pagination.KindThread))
}

func TestRetryBackoffSchedule(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	env.store.fail = errors.New("transient")
	env.store.failFor = 2

	res, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err, "two failures within two retries must recover")
	assert.Len(t, res.Items(), 10)
	assert.Equal(t, 3, env.store.fetchCount(pagination.KindPost))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, env.recordedSleeps())
}

func TestRetryExhaustedReturnsError(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	boom := errors.New("backend down")
	env.store.fail = boom
	env.store.failFor = -1

	_, err := env.client.List(context.Background(), pagination.KindPost, 10)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, env.store.fetchCount(pagination.KindPost), "initial attempt plus two retries")
}

func TestBackoffDelayCap(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0))
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
	assert.Equal(t, 16*time.Second, backoffDelay(4))
	assert.Equal(t, 30*time.Second, backoffDelay(5))
	assert.Equal(t, 30*time.Second, backoffDelay(10))
}

func TestOnFocusRefreshesOnlyStaleKeys(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)
	env.store.seed(pagination.KindThread, 25)
	ctx := context.Background()

	_, err := env.client.List(ctx, pagination.KindPost, 10)
	require.NoError(t, err)

	env.clock.Advance(DefaultStaleAfter + time.Second)

	// Threads were fetched after the jump, so only posts are stale now.
	_, err = env.client.List(ctx, pagination.KindThread, 10)
	require.NoError(t, err)

	env.client.OnFocus()

	require.Eventually(t, func() bool {
		return env.store.fetchCount(pagination.KindPost) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, env.store.fetchCount(pagination.KindThread))
}

func TestEvictDropsIdleLists(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)

	_, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, env.client.Stats()["list_entries"])

	env.clock.Advance(DefaultMaxIdle + time.Minute)
	env.client.evict()

	assert.Equal(t, 0, env.client.Stats()["list_entries"])
}

func TestClearAll(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(pagination.KindPost, 25)

	_, err := env.client.List(context.Background(), pagination.KindPost, 10)
	require.NoError(t, err)

	env.client.ClearAll()
	assert.Equal(t, 0, env.client.Stats()["list_entries"])
	assert.Equal(t, 0, env.client.Stats()["detail_entries"])
}
