package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one pipeline invocation as recorded in the history.
type Run struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Status         string    `json:"status"`
	DryRun         bool      `json:"dry_run"`
	RevisionCount  int       `json:"revision_count"`
	CandidateCount int       `json:"candidate_count"` // items ranked before eligibility
	ImageItem      string    `json:"image_item,omitempty"`
	ImageFile      string    `json:"image_file,omitempty"`
	Wikitext       string    `json:"wikitext,omitempty"`
	Error          string    `json:"error,omitempty"`
	Items          []RunItem `json:"items,omitempty"`
}

// RunItem is one selected item of a run, in display order.
type RunItem struct {
	Rank             int    `json:"rank"`
	ItemID           string `json:"item_id"`
	ContributorCount int    `json:"contributor_count"`
	ActionCount      int    `json:"action_count"`
}
