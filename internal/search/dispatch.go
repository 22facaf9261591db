package search

import (
	"context"
	"sync"
	"time"

	"jobsearch-api/internal/clients/francetravail"
	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/common/metrics"
	"jobsearch-api/internal/models"

	"github.com/panjf2000/ants/v2"
)

// ListingProvider is the upstream job-listing search API.
type ListingProvider interface {
	Search(ctx context.Context, params francetravail.SearchParams) ([]models.Listing, error)
}

// TaskResult is the settled outcome of one dispatched task. Exactly one
// of Listings and Err is meaningful.
type TaskResult struct {
	Listings []models.Listing
	Err      error
}

const (
	defaultConcurrency = 4
	defaultPacingDelay = 150 * time.Millisecond
)

// Dispatcher fans search tasks out against the provider under a bounded
// worker pool, pacing each upstream call to stay inside the provider's
// rate limits.
type Dispatcher struct {
	provider    ListingProvider
	concurrency int
	pacingDelay time.Duration
	logger      logger.Logger
}

func NewDispatcher(provider ListingProvider, concurrency int, pacingDelay time.Duration, log logger.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if pacingDelay < 0 {
		pacingDelay = defaultPacingDelay
	}
	return &Dispatcher{
		provider:    provider,
		concurrency: concurrency,
		pacingDelay: pacingDelay,
		logger:      log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch runs every task and returns one result per task, positionally
// aligned to the input. A task failure never aborts its siblings; Dispatch
// returns only after all tasks settle.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []models.SearchTask) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	pool, err := ants.NewPool(d.concurrency)
	if err != nil {
		// Pool construction only fails on invalid sizes; fall back to
		// sequential execution rather than failing the search.
		d.logger.WithError(err).Error("worker pool init failed, running sequentially", nil)
		for i, task := range tasks {
			results[i] = d.runTask(ctx, i, task)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = d.runTask(ctx, i, task)
		}); err != nil {
			results[i] = TaskResult{Err: err}
			wg.Done()
		}
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) runTask(ctx context.Context, index int, task models.SearchTask) TaskResult {
	// Pace even when a pool slot is free, to avoid bursts.
	if d.pacingDelay > 0 {
		select {
		case <-time.After(d.pacingDelay):
		case <-ctx.Done():
			metrics.SearchTasksTotal.WithLabelValues("failed").Inc()
			return TaskResult{Err: ctx.Err()}
		}
	}

	listings, err := d.provider.Search(ctx, buildParams(task))
	if err != nil {
		metrics.SearchTasksTotal.WithLabelValues("failed").Inc()
		fields := map[string]interface{}{
			"taskIndex": index,
			"keywords":  task.Variation.Keywords,
			"error":     err.Error(),
		}
		if stdErr := errors.AsStandard(err); stdErr != nil {
			fields["category"] = errors.GetErrorCategory(stdErr.Code)
			fields["retryable"] = errors.IsRetryableErrorCode(stdErr.Code)
		}
		d.logger.Warn("search task failed", fields)
		return TaskResult{Err: err}
	}

	metrics.SearchTasksTotal.WithLabelValues("succeeded").Inc()
	return TaskResult{Listings: listings}
}

func buildParams(task models.SearchTask) francetravail.SearchParams {
	params := francetravail.SearchParams{
		Keywords:           task.Variation.Keywords,
		Experience:         task.Variation.ExperienceLevel,
		ExperienceExigence: task.Variation.ExperienceRequirement,
		ContractType:       task.Variation.ContractType,
		FullTime:           task.Variation.IsFullTime,
	}
	if task.Location != nil {
		switch task.Location.Scope {
		case models.ScopeRegion:
			params.Region = task.Location.Code
		case models.ScopeDepartement:
			params.Departement = task.Location.Code
		case models.ScopeCommune:
			params.Commune = task.Location.Code
		}
	}
	return params
}
