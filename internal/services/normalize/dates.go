package normalize

import "time"

const dateLayout = "2006-01-02"

// DateHints are the concrete dates relative vocabulary resolves to
type DateHints struct {
	Today            string
	Tomorrow         string
	DayAfterTomorrow string
	ThisFriday       string
	NextMonday       string
}

// RelativeDates resolves relative date words against ref's calendar date.
// This Friday is the nearest Friday on or after ref; next Monday is the
// Monday of the following Monday-based week.
func RelativeDates(ref time.Time) DateHints {
	day := dateOf(ref)
	weekday := int(day.Weekday())

	toFriday := (int(time.Friday) - weekday + 7) % 7
	sinceMonday := (weekday + 6) % 7

	return DateHints{
		Today:            day.Format(dateLayout),
		Tomorrow:         day.AddDate(0, 0, 1).Format(dateLayout),
		DayAfterTomorrow: day.AddDate(0, 0, 2).Format(dateLayout),
		ThisFriday:       day.AddDate(0, 0, toFriday).Format(dateLayout),
		NextMonday:       day.AddDate(0, 0, 7-sinceMonday).Format(dateLayout),
	}
}

// dateOf truncates t to midnight in its own location
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
