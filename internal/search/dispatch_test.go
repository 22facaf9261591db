package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobsearch-api/internal/clients/francetravail"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns listings or an error keyed by keywords; a
// searchFn, when set, overrides the keyed lookup.
type scriptedProvider struct {
	mu       sync.Mutex
	byKey    map[string][]models.Listing
	failKeys map[string]error
	searchFn func(params francetravail.SearchParams) ([]models.Listing, error)
	calls    []francetravail.SearchParams

	inflight    int32
	maxInflight int32
	delay       time.Duration
}

func (p *scriptedProvider) Search(_ context.Context, params francetravail.SearchParams) ([]models.Listing, error) {
	current := atomic.AddInt32(&p.inflight, 1)
	defer atomic.AddInt32(&p.inflight, -1)
	for {
		peak := atomic.LoadInt32(&p.maxInflight)
		if current <= peak || atomic.CompareAndSwapInt32(&p.maxInflight, peak, current) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.calls = append(p.calls, params)
	p.mu.Unlock()

	if p.searchFn != nil {
		return p.searchFn(params)
	}
	if err, ok := p.failKeys[params.Keywords]; ok {
		return nil, err
	}
	return p.byKey[params.Keywords], nil
}

func task(keywords string, location *models.ResolvedLocation) models.SearchTask {
	return models.SearchTask{
		Variation: models.SearchVariation{Keywords: keywords},
		Location:  location,
	}
}

func TestDispatcher_ResultsAlignToTasks(t *testing.T) {
	provider := &scriptedProvider{
		byKey: map[string][]models.Listing{
			"alpha": {listing("1", "alpha job")},
			"beta":  {listing("2", "beta job")},
		},
		failKeys: map[string]error{"gamma": errors.New("provider returned 500")},
	}
	dispatcher := NewDispatcher(provider, 4, 0, logger.NewNoOpLogger())

	results := dispatcher.Dispatch(context.Background(), []models.SearchTask{
		task("alpha", nil),
		task("gamma", nil),
		task("beta", nil),
	})

	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "1", results[0].Listings[0].ID())

	require.Error(t, results[1].Err, "per-task error stays in its slot")
	assert.Nil(t, results[1].Listings)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "2", results[2].Listings[0].ID())
}

func TestDispatcher_FailureNeverAbortsSiblings(t *testing.T) {
	provider := &scriptedProvider{
		byKey: map[string][]models.Listing{"ok": {listing("1", "")}},
		failKeys: map[string]error{
			"bad-one": errors.New("timeout"),
			"bad-two": errors.New("malformed response"),
		},
	}
	dispatcher := NewDispatcher(provider, 2, 0, logger.NewNoOpLogger())

	results := dispatcher.Dispatch(context.Background(), []models.SearchTask{
		task("bad-one", nil), task("ok", nil), task("bad-two", nil),
	})

	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	provider := &scriptedProvider{delay: 20 * time.Millisecond}
	dispatcher := NewDispatcher(provider, 2, 0, logger.NewNoOpLogger())

	tasks := make([]models.SearchTask, 8)
	for i := range tasks {
		tasks[i] = task("any", nil)
	}
	dispatcher.Dispatch(context.Background(), tasks)

	assert.LessOrEqual(t, atomic.LoadInt32(&provider.maxInflight), int32(2))
}

func TestDispatcher_MapsLocationScopes(t *testing.T) {
	provider := &scriptedProvider{}
	dispatcher := NewDispatcher(provider, 1, 0, logger.NewNoOpLogger())

	dispatcher.Dispatch(context.Background(), []models.SearchTask{
		task("a", &models.ResolvedLocation{Scope: models.ScopeRegion, Code: "11"}),
		task("b", &models.ResolvedLocation{Scope: models.ScopeDepartement, Code: "75"}),
		task("c", &models.ResolvedLocation{Scope: models.ScopeCommune, Code: "75056"}),
		task("d", nil),
	})

	require.Len(t, provider.calls, 4)
	assert.Equal(t, "11", provider.calls[0].Region)
	assert.Equal(t, "75", provider.calls[1].Departement)
	assert.Equal(t, "75056", provider.calls[2].Commune)
	assert.Equal(t, francetravail.SearchParams{Keywords: "d"}, provider.calls[3])
}

func TestDispatcher_PacesBeforeEachProviderCall(t *testing.T) {
	const pacing = 30 * time.Millisecond

	start := time.Now()
	var mu sync.Mutex
	var elapsed []time.Duration
	provider := &scriptedProvider{
		searchFn: func(francetravail.SearchParams) ([]models.Listing, error) {
			mu.Lock()
			elapsed = append(elapsed, time.Since(start))
			mu.Unlock()
			return nil, nil
		},
	}
	// Two tasks, two slots: neither waits on the pool, so any delay
	// before the provider sees them is the pacing itself.
	dispatcher := NewDispatcher(provider, 2, pacing, logger.NewNoOpLogger())

	dispatcher.Dispatch(context.Background(), []models.SearchTask{task("a", nil), task("b", nil)})

	require.Len(t, elapsed, 2)
	for _, e := range elapsed {
		assert.GreaterOrEqual(t, e, pacing)
	}
}

func TestDispatcher_CancelledContextFailsTasks(t *testing.T) {
	provider := &scriptedProvider{}
	dispatcher := NewDispatcher(provider, 2, 50*time.Millisecond, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := dispatcher.Dispatch(ctx, []models.SearchTask{task("a", nil)})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Empty(t, provider.calls, "cancelled tasks never reach the provider")
}

func TestDispatcher_NoTasks(t *testing.T) {
	dispatcher := NewDispatcher(&scriptedProvider{}, 4, 0, logger.NewNoOpLogger())
	assert.Empty(t, dispatcher.Dispatch(context.Background(), nil))
}
