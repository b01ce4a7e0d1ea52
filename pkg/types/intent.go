package types

import "time"

// Action is the purpose a query expresses
type Action string

const (
	ActionFind      Action = "find"
	ActionSummarize Action = "summarize"
	ActionCompare   Action = "compare"
	ActionExplain   Action = "explain"
)

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionFind, ActionSummarize, ActionCompare, ActionExplain:
		return true
	default:
		return false
	}
}

// Timeframe is a relative time window named in a query
type Timeframe string

const (
	TimeframeNone      Timeframe = ""
	TimeframeToday     Timeframe = "today"
	TimeframeThisWeek  Timeframe = "this_week"
	TimeframeThisMonth Timeframe = "this_month"
	TimeframeThisYear  Timeframe = "this_year"
)

// Valid reports whether t is a known, non-empty timeframe
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeToday, TimeframeThisWeek, TimeframeThisMonth, TimeframeThisYear:
		return true
	default:
		return false
	}
}

// Since returns the start of the window relative to now.
// The second return value is false when no window applies.
func (t Timeframe) Since(now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	loc := now.Location()

	switch t {
	case TimeframeToday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case TimeframeThisWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case TimeframeThisMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case TimeframeThisYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// QueryIntent is a transient classification of a free-text query.
// It is only used to narrow candidates and is never persisted.
type QueryIntent struct {
	Action    Action
	Keywords  []string
	Entity    string       // Optional named entity
	Timeframe Timeframe    // Optional
	FileType  FileCategory // Optional preferred category
}

// CandidateFilter narrows the candidate universe before semantic scoring
type CandidateFilter struct {
	Since      time.Time // Zero means unbounded
	Extensions []string  // Empty means any file type
	Limit      int
}
