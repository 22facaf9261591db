package search

import (
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"
)

// Merge flattens task results into one deduplicated listing slice. Results
// are walked in task order, records in provider order; the first occurrence
// of an id wins and later duplicates are dropped. Records without an id
// cannot be deduplicated and are dropped. Failed tasks contribute nothing.
func Merge(results []TaskResult, log logger.Logger) []models.Listing {
	seen := make(map[string]struct{})
	merged := make([]models.Listing, 0)

	for i, result := range results {
		if result.Err != nil {
			log.Warn("task result excluded from merge", map[string]interface{}{
				"taskIndex": i,
				"error":     result.Err.Error(),
			})
			continue
		}
		for _, listing := range result.Listings {
			id := listing.ID()
			if id == "" {
				log.Warn("listing without id dropped", map[string]interface{}{
					"taskIndex": i,
					"title":     listing.Title(),
				})
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, listing)
		}
	}

	return merged
}
