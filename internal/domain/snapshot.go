package domain

import "time"

// Snapshot is the result set of one fetch, addressable by ID so later
// requests (CSV download, month view) never depend on process-wide state.
type Snapshot struct {
	ID        string             `json:"id"`
	AppID     string             `json:"appId"`
	Sort      SortOrder          `json:"sortOrder"`
	Requested int                `json:"requested"`
	Partial   bool               `json:"partial"`
	FetchedAt time.Time          `json:"fetchedAt"`
	Reviews   []AggregatedReview `json:"reviews"`
}
