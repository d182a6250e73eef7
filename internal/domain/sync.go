package domain

import "time"

const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncEntry is one audit record of a force-refresh attempt against the
// Graph API.
type SyncEntry struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	PostsFound int       `json:"posts_found"`
	PostsAdded int       `json:"posts_added"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SyncResult is what a completed sync run hands back to its caller.
type SyncResult struct {
	Posts      []SanitizedPost
	PostsFound int
}
