package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// PageAction is one pre-capture step executed by the rendered fetcher before
// the page content is captured. Actions run strictly in Order; each waits for
// the previous one to finish.
type PageAction struct {
	ID       string     `json:"id"`
	Type     ActionType `json:"type"`
	Label    string     `json:"label,omitempty"`
	Selector string     `json:"selector,omitempty"`
	// WaitSeconds is the pause duration for ActionWait.
	WaitSeconds int `json:"wait_seconds,omitempty"`
	// TapX and TapY are viewport-relative coordinates in [0,1] for ActionTap.
	TapX    float64 `json:"tap_x,omitempty"`
	TapY    float64 `json:"tap_y,omitempty"`
	Enabled bool    `json:"enabled"`
	Order   int     `json:"order"`
}

// NewClickAction creates an enabled click action on the given selector.
func NewClickAction(selector string, order int) PageAction {
	return PageAction{
		ID:       uuid.NewString(),
		Type:     ActionClick,
		Selector: selector,
		Enabled:  true,
		Order:    order,
	}
}

// NewWaitAction creates an enabled pause of the given duration.
func NewWaitAction(seconds, order int) PageAction {
	return PageAction{
		ID:          uuid.NewString(),
		Type:        ActionWait,
		WaitSeconds: seconds,
		Enabled:     true,
		Order:       order,
	}
}

// MarshalActionList serializes actions as a JSON array of flat records.
func MarshalActionList(actions []PageAction) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalActionList parses a JSON action array.
func UnmarshalActionList(raw string) ([]PageAction, error) {
	if raw == "" {
		return nil, nil
	}
	var actions []PageAction
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, err
	}
	for i := range actions {
		if actions[i].ID == "" {
			actions[i].ID = uuid.NewString()
		}
	}
	return actions, nil
}
