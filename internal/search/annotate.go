package search

import "jobsearch-api/internal/models"

// Annotate stamps each listing with the user's interaction flags. A job
// with any tracked status has been viewed; applying implies viewing.
// Listings with no history entry get both flags false.
func Annotate(listings []models.Listing, statuses map[string]models.JobStatus) {
	for _, listing := range listings {
		status, tracked := statuses[listing.ID()]
		listing.SetInteraction(tracked, status == models.JobStatusApplied)
	}
}
