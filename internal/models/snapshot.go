package models

import "time"

// DefaultSnapshotRetention is the number of snapshots kept per source after
// pruning.
const DefaultSnapshotRetention = 10

// DefaultRetryCount is the number of fetch attempts per check when the
// configuration does not set one.
const DefaultRetryCount = 3

// Snapshot is a stored prior fetch used as the comparison baseline. The
// content itself lives behind StorageRef; the snapshot record carries only
// metadata.
type Snapshot struct {
	SourceID    int64     `json:"source_id"`
	StorageRef  string    `json:"storage_ref"`
	ContentHash string    `json:"content_hash"`
	ContentSize int64     `json:"content_size"`
	Timestamp   time.Time `json:"timestamp"`
}

// CheckResult is an immutable log record of one check attempt.
type CheckResult struct {
	ID            int64         `json:"id"`
	SourceID      int64         `json:"source_id"`
	CheckTime     time.Time     `json:"check_time"`
	Success       bool          `json:"success"`
	ChangePercent float64       `json:"change_percent"`
	Error         string        `json:"error,omitempty"`
	ResponseTime  time.Duration `json:"response_time"`
}
