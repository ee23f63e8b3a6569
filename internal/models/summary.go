package models

import "time"

// Period is the reporting window of a productivity summary
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
)

// Valid reports whether p is a supported period.
func (p Period) Valid() bool {
	return p == PeriodToday || p == PeriodWeek
}

// Bounds returns the half-open range [start, end) covering p for the day of now,
// in now's location. Weeks start on Monday.
func (p Period) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if p == PeriodWeek {
		offset := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	}
	return start, start.AddDate(0, 0, 1)
}

// Slot is a coarse time-of-day bucket keyed on the due hour
type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
	SlotEvening   Slot = "evening"
)

// Slots lists the buckets in tie-break order.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotEvening}

// SlotForHour maps an hour in [0,24) onto its bucket.
func SlotForHour(hour int) Slot {
	switch {
	case hour < 12:
		return SlotMorning
	case hour < 18:
		return SlotAfternoon
	default:
		return SlotEvening
	}
}

// Counter is a completion tally for a group of tasks
type Counter struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Incomplete     int `json:"incomplete"`
	CompletionRate int `json:"completion_rate"`
}

// TaskStats is the deterministic statistics block computed before narration
type TaskStats struct {
	Period             Period               `json:"period"`
	Overall            Counter              `json:"overall"`
	ByPriority         map[Priority]Counter `json:"by_priority"`
	ByCategory         map[string]Counter   `json:"by_category"`
	BySlot             map[Slot]Counter     `json:"by_slot"`
	ByWeekday          map[string]Counter   `json:"by_weekday,omitempty"`
	Overdue            int                  `json:"overdue"`
	OnTimeCompleted    int                  `json:"on_time_completed"`
	MostProductiveSlot Slot                 `json:"most_productive_slot"`
	DeferralRatio      float64              `json:"deferral_ratio"`
	UrgentCandidates   []string             `json:"urgent_candidates"`
}

// Summary is the narrative produced for a period
type Summary struct {
	Summary         string   `json:"summary"`
	UrgentTasks     []string `json:"urgentTasks"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// SummaryReport is what the summary endpoints return: stats plus narrative
type SummaryReport struct {
	Period  Period    `json:"period"`
	Stats   TaskStats `json:"stats"`
	Summary *Summary  `json:"summary"`
}
