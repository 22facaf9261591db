package models

import "time"

// JobStatus is the user's interaction state with a listing.
type JobStatus string

const (
	JobStatusViewed  JobStatus = "VIEWED"
	JobStatusApplied JobStatus = "APPLIED"
)

// Listing is a raw provider record. The provider's payload shape varies
// between endpoints, so listings stay opaque maps; only the fields this
// service touches get accessors.
type Listing map[string]interface{}

// ID returns the provider-assigned listing id, or "" if absent.
func (l Listing) ID() string {
	id, _ := l["id"].(string)
	return id
}

func (l Listing) Title() string {
	t, _ := l["title"].(string)
	return t
}

func (l Listing) Description() string {
	d, _ := l["description"].(string)
	return d
}

// SetRelevance stores the ranking outcome on the record.
func (l Listing) SetRelevance(score int, reasoning string) {
	l["relevance_score"] = score
	l["relevance_reasoning"] = reasoning
}

// RelevanceScore returns the stored score, or 0 when unranked.
func (l Listing) RelevanceScore() int {
	switch v := l["relevance_score"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// SetInteraction stores the user's viewed/applied flags on the record.
func (l Listing) SetInteraction(viewed, applied bool) {
	l["is_viewed"] = viewed
	l["is_applied"] = applied
}

// TrackedJob is a row of the user's job-tracking history.
type TrackedJob struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	JobID       string     `json:"jobId"`
	JobTitle    string     `json:"jobTitle"`
	CompanyName string     `json:"companyName,omitempty"`
	Status      JobStatus  `json:"status"`
	ViewedAt    time.Time  `json:"viewedAt"`
	AppliedAt   *time.Time `json:"appliedAt,omitempty"`
}
