package models

import "time"

// Source defaults inherited from the product configuration.
const (
	DefaultThresholdPercent = 25
	DefaultMinTextLength    = 3
	DefaultMinWordLength    = 1
)

// Source is a monitored endpoint together with its comparison configuration
// and trigger schedules.
type Source struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`

	ComparisonMode  ComparisonMode    `json:"comparison_mode"`
	FetchMode       FetchMode         `json:"fetch_mode"`
	IncludeSelector string            `json:"include_selector,omitempty"`
	ExcludeSelector string            `json:"exclude_selector,omitempty"`
	MinTextLength   int               `json:"min_text_length"`
	MinWordLength   int               `json:"min_word_length"`
	DiffAlgorithm   DiffAlgorithmType `json:"diff_algorithm"`

	// ThresholdPercent is the minimum change percent treated as significant,
	// in [1,99].
	ThresholdPercent int  `json:"threshold_percent"`
	Enabled          bool `json:"enabled"`

	Schedules []Schedule   `json:"schedules"`
	Actions   []PageAction `json:"actions,omitempty"`

	LastCheckTime       time.Time `json:"last_check_time,omitzero"`
	LastChangePercent   float64   `json:"last_change_percent"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// NewSource creates an enabled source with product defaults and one
// always-active periodic schedule.
func NewSource(url, name string) *Source {
	now := time.Now()
	return &Source{
		URL:              url,
		Name:             name,
		ComparisonMode:   ComparisonModeFullContent,
		FetchMode:        FetchModeStatic,
		MinTextLength:    DefaultMinTextLength,
		MinWordLength:    DefaultMinWordLength,
		DiffAlgorithm:    DiffAlgorithmLine,
		ThresholdPercent: DefaultThresholdPercent,
		Enabled:          true,
		Schedules:        []Schedule{NewDefaultSchedule()},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// EnabledActions returns the source's enabled page actions in execution
// order. The returned slice is sorted by Order ascending.
func (s *Source) EnabledActions() []PageAction {
	actions := make([]PageAction, 0, len(s.Actions))
	for _, a := range s.Actions {
		if a.Enabled {
			actions = append(actions, a)
		}
	}
	for i := 1; i < len(actions); i++ {
		for j := i; j > 0 && actions[j].Order < actions[j-1].Order; j-- {
			actions[j], actions[j-1] = actions[j-1], actions[j]
		}
	}
	return actions
}

// Threshold returns the notification threshold clamped to [1,99].
func (s *Source) Threshold() float64 {
	t := s.ThresholdPercent
	if t < 1 {
		t = 1
	} else if t > 99 {
		t = 99
	}
	return float64(t)
}
