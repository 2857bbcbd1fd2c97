package models

import "strings"

// ComparisonMode selects how two content snapshots are compared.
type ComparisonMode string

const (
	ComparisonModeFullContent ComparisonMode = "full_content"
	ComparisonModeTextOnly    ComparisonMode = "text_only"
	ComparisonModeSelector    ComparisonMode = "selector"
)

// FetchMode selects how a source's content is retrieved.
type FetchMode string

const (
	FetchModeStatic   FetchMode = "static"
	FetchModeRendered FetchMode = "rendered"
)

// CalendarType is the date-level constraint of a schedule.
type CalendarType string

const (
	CalendarAlways      CalendarType = "always"
	CalendarSelectedDay CalendarType = "selected_day"
	CalendarDateRange   CalendarType = "date_range"
	CalendarWeekly      CalendarType = "weekly"
)

// IntervalType is the time-of-day portion of a schedule.
type IntervalType string

const (
	IntervalPeriodic  IntervalType = "periodic"
	IntervalFixedHour IntervalType = "fixed_hour"
)

// WeekParity filters weekly schedules to even or odd ISO weeks.
type WeekParity string

const (
	WeekParityBoth WeekParity = "both"
	WeekParityEven WeekParity = "even"
	WeekParityOdd  WeekParity = "odd"
)

// NetworkMode is the connectivity policy gating checks.
type NetworkMode string

const (
	NetworkModeWiFiOnly    NetworkMode = "wifi_only"
	NetworkModeWiFiAndData NetworkMode = "wifi_and_data"
	NetworkModeDataOnly    NetworkMode = "data_only"
)

// DiffAlgorithmType selects the diff engine tokenization.
type DiffAlgorithmType string

const (
	DiffAlgorithmLine      DiffAlgorithmType = "line"
	DiffAlgorithmWord      DiffAlgorithmType = "word"
	DiffAlgorithmCharacter DiffAlgorithmType = "character"
)

// ActionType is the kind of a pre-capture page action.
type ActionType string

const (
	ActionClick ActionType = "click"
	ActionWait  ActionType = "wait"
	ActionTap   ActionType = "tap"
)

// ParseDiffAlgorithmType maps a config string to a DiffAlgorithmType,
// defaulting to line-based diffing for unknown values.
func ParseDiffAlgorithmType(s string) DiffAlgorithmType {
	switch DiffAlgorithmType(strings.ToLower(strings.TrimSpace(s))) {
	case DiffAlgorithmWord:
		return DiffAlgorithmWord
	case DiffAlgorithmCharacter:
		return DiffAlgorithmCharacter
	default:
		return DiffAlgorithmLine
	}
}

// ParseNetworkMode maps a config string to a NetworkMode, defaulting to
// allowing both transports.
func ParseNetworkMode(s string) NetworkMode {
	switch NetworkMode(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkModeWiFiOnly:
		return NetworkModeWiFiOnly
	case NetworkModeDataOnly:
		return NetworkModeDataOnly
	default:
		return NetworkModeWiFiAndData
	}
}
