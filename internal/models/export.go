package models

import (
	"encoding/json"
	"time"
)

// exportEnvelope is the on-disk format for source export files.
type exportEnvelope struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Sources    []*Source `json:"sources"`
}

const exportVersion = 1

// ExportSources serializes sources to the versioned JSON interchange format.
// Runtime state (last check, errors, failure counts) is cleared so imports
// start fresh.
func ExportSources(sources []*Source) ([]byte, error) {
	cleaned := make([]*Source, 0, len(sources))
	for _, s := range sources {
		c := *s
		c.ID = 0
		c.LastCheckTime = time.Time{}
		c.LastChangePercent = 0
		c.LastError = ""
		c.ConsecutiveFailures = 0
		cleaned = append(cleaned, &c)
	}
	return json.MarshalIndent(exportEnvelope{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Sources:    cleaned,
	}, "", "  ")
}

// ImportSources parses an export file. Sources without schedules get the
// compatibility default so the non-empty schedule invariant holds.
func ImportSources(data []byte) ([]*Source, error) {
	var envelope exportEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	for _, s := range envelope.Sources {
		if len(s.Schedules) == 0 {
			s.Schedules = []Schedule{NewDefaultSchedule()}
		}
	}
	return envelope.Sources, nil
}
