package checker

import (
	"context"
	"time"

	"github.com/sitevigil/sitevigil/internal/models"
)

// Fetcher retrieves a source's current content.
type Fetcher interface {
	Fetch(ctx context.Context, source *models.Source) ([]byte, error)
}

// Comparator scores the difference between two content snapshots.
type Comparator interface {
	Compare(oldContent, newContent []byte, source *models.Source) models.ComparisonResult
}

// HistoryStore reads and writes the snapshot baselines a check compares
// against.
type HistoryStore interface {
	Latest(sourceID int64) (*models.Snapshot, error)
	Load(snapshot *models.Snapshot) ([]byte, error)
	Save(sourceID int64, content []byte, hash string) (*models.Snapshot, error)
	Prune(sourceID int64, keep int) error
}

// SourceStore persists post-check source state and the immutable check log.
type SourceStore interface {
	UpdateAfterCheck(sourceID int64, checkTime time.Time, changePercent float64, errText string, consecutiveFailures int) error
	AppendResult(result *models.CheckResult) error
}

// Notifier delivers significant-change notifications.
type Notifier interface {
	NotifyChange(ctx context.Context, source *models.Source, result models.ComparisonResult, preview string) error
}

// NetworkPolicy gates checks on current connectivity.
type NetworkPolicy interface {
	Allowed(mode models.NetworkMode) error
}
