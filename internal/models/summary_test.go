package models

import (
	"testing"
	"time"
)

func TestPeriod_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Period
		valid bool
	}{
		{PeriodToday, true},
		{PeriodWeek, true},
		{Period("tomorrow"), false},
		{Period(""), false},
	}

	for _, tt := range tests {
		if got := tt.value.Valid(); got != tt.valid {
			t.Errorf("Period(%q).Valid() = %v, want %v", tt.value, got, tt.valid)
		}
	}
}

func TestPeriod_Bounds(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*3600)
	// Thursday
	now := time.Date(2025, 6, 5, 15, 30, 0, 0, seoul)

	start, end := PeriodToday.Bounds(now)
	if !start.Equal(time.Date(2025, 6, 5, 0, 0, 0, 0, seoul)) {
		t.Errorf("today start = %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 6, 0, 0, 0, 0, seoul)) {
		t.Errorf("today end = %v", end)
	}

	start, end = PeriodWeek.Bounds(now)
	if !start.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, seoul)) {
		t.Errorf("week start = %v, want Monday 2025-06-02", start)
	}
	if !end.Equal(time.Date(2025, 6, 9, 0, 0, 0, 0, seoul)) {
		t.Errorf("week end = %v", end)
	}

	// Sunday belongs to the week that started the previous Monday
	sunday := time.Date(2025, 6, 8, 23, 0, 0, 0, seoul)
	start, _ = PeriodWeek.Bounds(sunday)
	if !start.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, seoul)) {
		t.Errorf("sunday week start = %v", start)
	}
}

func TestSlotForHour(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour int
		want Slot
	}{
		{0, SlotMorning},
		{11, SlotMorning},
		{12, SlotAfternoon},
		{17, SlotAfternoon},
		{18, SlotEvening},
		{23, SlotEvening},
	}
	for _, tt := range tests {
		if got := SlotForHour(tt.hour); got != tt.want {
			t.Errorf("SlotForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestTask_SetCompleted(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	task := &Task{}

	task.SetCompleted(true, at)
	if !task.Completed || task.CompletedAt == nil || !task.CompletedAt.Equal(at) {
		t.Fatalf("expected completed task with completed_at %v, got %+v", at, task)
	}

	task.SetCompleted(false, at.Add(time.Hour))
	if task.Completed || task.CompletedAt != nil {
		t.Fatalf("expected completion cleared, got %+v", task)
	}
}
