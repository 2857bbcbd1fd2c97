package models

import "fmt"

// DiffResult is the output of one diff algorithm run: token-level change
// counts and the derived change percentage.
type DiffResult struct {
	Added         int
	Removed       int
	Unchanged     int
	TotalOld      int
	TotalNew      int
	ChangePercent float64
	Description   string
}

// ComparisonResult is the outcome of comparing two content snapshots.
// ChangePercent is always clamped to [0,100].
type ComparisonResult struct {
	ChangePercent float64
	OldSize       int
	NewSize       int
	HasChanged    bool
	Description   string
}

// NoChange creates a result for byte-identical or equivalently empty content.
func NoChange(size int) ComparisonResult {
	return ComparisonResult{
		OldSize:     size,
		NewSize:     size,
		Description: "No changes detected",
	}
}

// Changed creates a result for detected content change.
func Changed(percent float64, oldSize, newSize int, description string) ComparisonResult {
	return ComparisonResult{
		ChangePercent: clampPercent(percent),
		OldSize:       oldSize,
		NewSize:       newSize,
		HasChanged:    true,
		Description:   description,
	}
}

// IsSignificant reports whether the change both exists and meets the
// notification threshold.
func (r ComparisonResult) IsSignificant(thresholdPercent float64) bool {
	return r.HasChanged && r.ChangePercent >= thresholdPercent
}

func (r ComparisonResult) String() string {
	return fmt.Sprintf("ComparisonResult{changed=%t percent=%.2f old=%d new=%d %q}",
		r.HasChanged, r.ChangePercent, r.OldSize, r.NewSize, r.Description)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
