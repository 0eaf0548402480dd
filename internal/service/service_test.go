package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/panchang-io/festivals-api/internal/cache"
	"github.com/panchang-io/festivals-api/internal/festival"
	"github.com/panchang-io/festivals-api/internal/metrics"
)

const calendarPage = `<html><body>
<table>
  <thead><tr><th>January 2025</th></tr></thead>
  <tbody>
    <tr><td>1 Wednesday</td><td><b style="color:#a60000">New Year</b></td></tr>
    <tr><td>26 Sunday</td><td><b style="color: #4A3475">Republic Day</b></td></tr>
  </tbody>
</table>
<table>
  <thead><tr><th>March 2025</th></tr></thead>
  <tbody>
    <tr><td>14 Friday</td><td><b style="color:#a60000">Holi</b></td></tr>
  </tbody>
</table>
</body></html>`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFetcher struct {
	mu       sync.Mutex
	body     []byte
	failures int
	delay    time.Duration
	fetches  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, year int) ([]byte, error) {
	f.mu.Lock()
	f.fetches++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	delay := f.delay
	body := f.body
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, &festival.FetchError{Year: year, URL: "https://calendar.example.com", StatusCode: 503}
	}
	return body, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newTestService(t *testing.T, fetcher festival.Fetcher, clk festival.Clock, ttl time.Duration) *Service {
	t.Helper()
	metrics.Init()
	return New(cache.New(ttl, clk), fetcher, ttl, zap.NewNop())
}

func TestService_RepeatedQueryScrapesOnce(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage)}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	first, err := svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"January", "March"}, first.Names())

	second, err := svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, 1, fetcher.count())
}

func TestService_DistinctQueriesScrapeSeparately(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage)}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	ctx := context.Background()
	_, err := svc.Festivals(ctx, 2025, 0)
	require.NoError(t, err)
	_, err = svc.Festivals(ctx, 2025, 1)
	require.NoError(t, err)
	_, err = svc.Festivals(ctx, 2024, 0)
	require.NoError(t, err)
	_, err = svc.ReligiousFestivals(ctx, 2025, 0)
	require.NoError(t, err)

	require.Equal(t, 4, fetcher.count())
}

func TestService_ViewsDoNotCollide(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage)}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	festivals, err := svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"January", "March"}, festivals.Names())

	religious, err := svc.ReligiousFestivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.Equal(t, festival.Categories(), religious.Names())

	hindu := religious.Records("Hindu Festivals")
	require.Len(t, hindu, 2)
	require.Equal(t, "New Year", hindu[0].Name)
	require.Equal(t, "January", hindu[0].Month)
	require.Equal(t, "Holi", hindu[1].Name)
}

func TestService_ExpiredEntryScrapesAgain(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1000, 0)}
	fetcher := &fakeFetcher{body: []byte(calendarPage)}
	svc := newTestService(t, fetcher, clk, time.Hour)

	_, err := svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)

	_, err = svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.count())
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage), failures: 1}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	_, err := svc.Festivals(context.Background(), 2025, 0)
	require.Error(t, err)

	var fe *festival.FetchError
	require.ErrorAs(t, err, &fe)

	got, err := svc.Festivals(context.Background(), 2025, 0)
	require.NoError(t, err)
	require.True(t, got.HasRecords())
	require.Equal(t, 2, fetcher.count())
}

func TestService_EmptyResultsAreCached(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(`<html><body><p>no tables</p></body></html>`)}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	for i := 0; i < 3; i++ {
		got, err := svc.Festivals(context.Background(), 2025, 0)
		require.NoError(t, err)
		require.False(t, got.HasRecords())
	}
	require.Equal(t, 1, fetcher.count())
}

func TestService_ConcurrentMissesShareOneScrape(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage), delay: 50 * time.Millisecond}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ReligiousFestivals(context.Background(), 2025, 0)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, fetcher.count())
}

func TestService_ContextCancellationPropagates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(calendarPage), delay: time.Second}
	svc := newTestService(t, fetcher, &fakeClock{now: time.Unix(1000, 0)}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Festivals(ctx, 2025, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
