// Package search is the smart-search core: query expansion, location
// resolution, bounded fan-out against the listing provider, deduplicating
// merge, similarity ranking and history annotation.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobsearch-api/internal/ai"
	"jobsearch-api/internal/clients/francetravail"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/common/metrics"
	"jobsearch-api/internal/models"
)

// HistoryReader is the read-only slice of the job-history store the
// annotator needs.
type HistoryReader interface {
	StatusesFor(ctx context.Context, userID int64) (map[string]models.JobStatus, error)
}

// AuditRecord summarizes one smart search for the audit log.
type AuditRecord struct {
	UserID         int64
	Query          string
	VariationCount int
	TaskCount      int
	FailedTasks    int
	ResultCount    int
	FallbackUsed   bool
	Duration       time.Duration
}

// AuditSink receives search summaries. Implementations must absorb their
// own failures; the orchestrator never checks them.
type AuditSink interface {
	RecordSearch(ctx context.Context, record AuditRecord)
}

// defaultQuery stands in for an absent query so the expander still has
// something to plan from; the profile summary carries the real signal.
const defaultQuery = "Find jobs matching my profile"

// Orchestrator runs the smart-search pipeline. All collaborators are
// injected; it holds no global state.
type Orchestrator struct {
	expander   ai.QueryExpander
	resolver   *Resolver
	dispatcher *Dispatcher
	provider   ListingProvider
	ranker     *Ranker
	history    HistoryReader
	audit      AuditSink
	logger     logger.Logger
}

func NewOrchestrator(
	expander ai.QueryExpander,
	resolver *Resolver,
	dispatcher *Dispatcher,
	provider ListingProvider,
	ranker *Ranker,
	history HistoryReader,
	audit AuditSink,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		expander:   expander,
		resolver:   resolver,
		dispatcher: dispatcher,
		provider:   provider,
		ranker:     ranker,
		history:    history,
		audit:      audit,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// SmartSearch expands the query, fans the variations out against the
// provider, merges, ranks and annotates. Internal failures degrade the
// result; only expansion failure surfaces as an error.
func (o *Orchestrator) SmartSearch(ctx context.Context, user *models.User, query string) ([]models.Listing, error) {
	start := time.Now()
	defer func() {
		metrics.SmartSearchDuration.Observe(time.Since(start).Seconds())
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultQuery
	}

	profileSummary := BuildProfileSummary(user)

	variations, err := o.expander.Expand(ctx, query, profileSummary)
	if err != nil {
		metrics.SmartSearchesTotal.WithLabelValues("expansion_failed").Inc()
		o.logger.WithError(err).Error("query expansion failed", map[string]interface{}{
			"userId": user.ID,
		})
		return nil, fmt.Errorf("query expansion: %w", err)
	}

	tasks := o.buildTasks(ctx, variations)
	results := o.dispatcher.Dispatch(ctx, tasks)
	merged := Merge(results, o.logger)

	failedTasks := 0
	for _, result := range results {
		if result.Err != nil {
			failedTasks++
		}
	}

	fallbackUsed := false
	if len(merged) == 0 {
		fallbackUsed = true
		merged = o.fallback(ctx, variations, query)
	}

	ranked := o.ranker.Rank(ctx, profileSummary, merged)

	statuses, err := o.history.StatusesFor(ctx, user.ID)
	if err != nil {
		o.logger.Warn("job history unavailable, annotating without it", map[string]interface{}{
			"userId": user.ID,
			"error":  err.Error(),
		})
		statuses = nil
	}
	Annotate(ranked, statuses)

	outcome := "success"
	if len(ranked) == 0 {
		outcome = "empty"
	}
	metrics.SmartSearchesTotal.WithLabelValues(outcome).Inc()

	if o.audit != nil {
		o.audit.RecordSearch(ctx, AuditRecord{
			UserID:         user.ID,
			Query:          query,
			VariationCount: len(variations),
			TaskCount:      len(tasks),
			FailedTasks:    failedTasks,
			ResultCount:    len(ranked),
			FallbackUsed:   fallbackUsed,
			Duration:       time.Since(start),
		})
	}

	o.logger.Info("smart search completed", map[string]interface{}{
		"userId":       user.ID,
		"variations":   len(variations),
		"tasks":        len(tasks),
		"results":      len(ranked),
		"fallbackUsed": fallbackUsed,
		"durationMs":   time.Since(start).Milliseconds(),
	})

	return ranked, nil
}

// buildTasks resolves each variation's location. A commune resolution
// whose record exposes a parent department gets a second department-wide
// task right after it, so dispatch order stays depth-first per variation.
func (o *Orchestrator) buildTasks(ctx context.Context, variations []models.SearchVariation) []models.SearchTask {
	tasks := make([]models.SearchTask, 0, len(variations))
	for _, variation := range variations {
		if variation.LocationRaw == "" {
			tasks = append(tasks, models.SearchTask{Variation: variation})
			continue
		}

		location, meta := o.resolver.Resolve(ctx, variation.LocationRaw, variation.LocationType)
		tasks = append(tasks, models.SearchTask{Variation: variation, Location: location})

		if location != nil && location.Scope == models.ScopeCommune && meta.Dept != "" {
			tasks = append(tasks, models.SearchTask{
				Variation: variation,
				Location:  &models.ResolvedLocation{Scope: models.ScopeDepartement, Code: meta.Dept},
			})
		}
	}
	return tasks
}

// fallback issues exactly one nation-wide keyword-only query. An empty or
// failed fallback is a successful zero-result outcome.
func (o *Orchestrator) fallback(ctx context.Context, variations []models.SearchVariation, query string) []models.Listing {
	metrics.SearchFallbacksTotal.Inc()

	keywords := query
	if len(variations) > 0 {
		keywords = variations[0].Keywords
	}

	o.logger.Info("all tasks empty, issuing nation-wide fallback", map[string]interface{}{
		"keywords": keywords,
	})

	listings, err := o.provider.Search(ctx, francetravail.SearchParams{Keywords: keywords})
	if err != nil {
		o.logger.Warn("fallback search failed", map[string]interface{}{
			"keywords": keywords,
			"error":    err.Error(),
		})
		return nil
	}

	return Merge([]TaskResult{{Listings: listings}}, o.logger)
}

const (
	profileMaxSkills      = 10
	profileMaxExperiences = 3
	profileMaxProjects    = 3
)

// BuildProfileSummary condenses a user profile into the short text fed to
// the expander and the ranker.
func BuildProfileSummary(user *models.User) string {
	if user == nil {
		return ""
	}

	var parts []string

	if len(user.Skills) > 0 {
		names := make([]string, 0, profileMaxSkills)
		for _, skill := range user.Skills {
			if len(names) == profileMaxSkills {
				break
			}
			names = append(names, skill.Name)
		}
		parts = append(parts, "Skills: "+strings.Join(names, ", "))
	}

	if len(user.WorkExperiences) > 0 {
		lines := make([]string, 0, profileMaxExperiences)
		for _, exp := range user.WorkExperiences {
			if len(lines) == profileMaxExperiences {
				break
			}
			lines = append(lines, exp.Role+" at "+exp.Company)
		}
		parts = append(parts, "Experience: "+strings.Join(lines, "; "))
	}

	if len(user.Projects) > 0 {
		names := make([]string, 0, profileMaxProjects)
		for _, project := range user.Projects {
			if len(names) == profileMaxProjects {
				break
			}
			names = append(names, project.Name)
		}
		parts = append(parts, "Projects: "+strings.Join(names, ", "))
	}

	return strings.Join(parts, "\n")
}
