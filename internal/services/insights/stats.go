package insights

import (
	"sort"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
)

const (
	// Uncategorized collects tasks that carry no category label
	Uncategorized = "uncategorized"
	// MaxUrgentCandidates caps the titles handed to the narrator
	MaxUrgentCandidates = 10
)

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// ComputeStats derives the statistics block for tasks over period. It is pure:
// now supplies both the reference instant and the location used for slots.
func ComputeStats(tasks []models.Task, period models.Period, now time.Time) models.TaskStats {
	stats := models.TaskStats{
		Period:     period,
		ByPriority: make(map[models.Priority]models.Counter, len(models.Priorities)),
		ByCategory: make(map[string]models.Counter),
		BySlot:     make(map[models.Slot]models.Counter, len(models.Slots)),
	}
	for _, p := range models.Priorities {
		stats.ByPriority[p] = models.Counter{}
	}
	for _, s := range models.Slots {
		stats.BySlot[s] = models.Counter{}
	}
	if period == models.PeriodWeek {
		stats.ByWeekday = make(map[string]models.Counter, len(weekdays))
		for _, d := range weekdays {
			stats.ByWeekday[d.String()] = models.Counter{}
		}
	}

	loc := now.Location()
	incomplete, incompleteHigh := 0, 0

	for i := range tasks {
		task := &tasks[i]

		stats.Overall = tally(stats.Overall, task.Completed)

		if c, ok := stats.ByPriority[task.Priority]; ok {
			stats.ByPriority[task.Priority] = tally(c, task.Completed)
		}

		for _, label := range categoryLabels(task.Category) {
			stats.ByCategory[label] = tally(stats.ByCategory[label], task.Completed)
		}

		if task.DueAt != nil {
			due := task.DueAt.In(loc)
			slot := models.SlotForHour(due.Hour())
			stats.BySlot[slot] = tally(stats.BySlot[slot], task.Completed)

			if stats.ByWeekday != nil {
				day := due.Weekday().String()
				stats.ByWeekday[day] = tally(stats.ByWeekday[day], task.Completed)
			}
		}

		if !task.Completed {
			incomplete++
			if task.Priority == models.PriorityHigh {
				incompleteHigh++
			}
			if task.DueAt != nil && task.DueAt.Before(now) {
				stats.Overdue++
			}
		} else if completedOnTime(task, now) {
			stats.OnTimeCompleted++
		}
	}

	stats.Overall = withRate(stats.Overall)
	for k, c := range stats.ByPriority {
		stats.ByPriority[k] = withRate(c)
	}
	for k, c := range stats.ByCategory {
		stats.ByCategory[k] = withRate(c)
	}
	for k, c := range stats.BySlot {
		stats.BySlot[k] = withRate(c)
	}
	for k, c := range stats.ByWeekday {
		stats.ByWeekday[k] = withRate(c)
	}

	stats.MostProductiveSlot = mostProductiveSlot(stats.BySlot)
	stats.DeferralRatio = float64(incompleteHigh) / float64(max(incomplete, 1))
	stats.UrgentCandidates = urgentCandidates(tasks)
	return stats
}

// CompletionRate is completed/total as an integer percent rounded half up.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	completed = min(max(completed, 0), total)
	return (completed*200 + total) / (total * 2)
}

func tally(c models.Counter, completed bool) models.Counter {
	c.Total++
	if completed {
		c.Completed++
	} else {
		c.Incomplete++
	}
	return c
}

func withRate(c models.Counter) models.Counter {
	c.CompletionRate = CompletionRate(c.Completed, c.Total)
	return c
}

func categoryLabels(category []string) []string {
	if len(category) == 0 {
		return []string{Uncategorized}
	}
	seen := make(map[string]bool, len(category))
	out := make([]string, 0, len(category))
	for _, c := range category {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{Uncategorized}
	}
	return out
}

// completedOnTime prefers the recorded completion instant. Rows without one
// fall back to treating a due date still in the future as on time.
func completedOnTime(task *models.Task, now time.Time) bool {
	if task.DueAt == nil {
		return false
	}
	if task.CompletedAt != nil {
		return !task.CompletedAt.After(*task.DueAt)
	}
	return !task.DueAt.Before(now)
}

// mostProductiveSlot picks the highest rate among slots with tasks; earlier slots win ties.
func mostProductiveSlot(bySlot map[models.Slot]models.Counter) models.Slot {
	var best models.Slot
	bestRate := -1
	for _, s := range models.Slots {
		c := bySlot[s]
		if c.Total == 0 {
			continue
		}
		if c.CompletionRate > bestRate {
			best, bestRate = s, c.CompletionRate
		}
	}
	return best
}

func urgentCandidates(tasks []models.Task) []string {
	open := make([]*models.Task, 0, len(tasks))
	for i := range tasks {
		if !tasks[i].Completed {
			open = append(open, &tasks[i])
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i], open[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		switch {
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		default:
			return a.DueAt.Before(*b.DueAt)
		}
	})

	titles := make([]string, 0, min(len(open), MaxUrgentCandidates))
	for _, t := range open {
		if len(titles) == MaxUrgentCandidates {
			break
		}
		titles = append(titles, t.Title)
	}
	return titles
}
