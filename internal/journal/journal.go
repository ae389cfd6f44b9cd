// Package journal records transfer outcomes so orphaned staging objects can
// be garbage-collected after a task dies mid-commit.
package journal

import (
	"time"
)

// Status represents the state of one recorded transfer
type Status string

const (
	// StatusStaged means the object was uploaded to the staging path but
	// the commit move has not completed.
	StatusStaged Status = "staged"
	// StatusCommitted means the move to the final path completed.
	StatusCommitted Status = "committed"
	// StatusFailed means the transfer failed after staging began.
	StatusFailed Status = "failed"
	// StatusSwept means gc removed the orphaned staging object.
	StatusSwept Status = "swept"
)

// Entry is one recorded transfer, keyed by its final remote path.
type Entry struct {
	TaskID    string    `json:"task_id"`
	SourceURL string    `json:"source_url"`
	TmpPath   string    `json:"tmp_path"`
	FinalPath string    `json:"final_path"`
	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for journal persistence
type Store interface {
	Get(taskID string) (*Entry, error)
	Save(entry *Entry) error
	// ListStagedBefore returns entries still staged (or failed after
	// staging) whose last update is older than cutoff.
	ListStagedBefore(cutoff time.Time) ([]*Entry, error)

	Close() error
}
