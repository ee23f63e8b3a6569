package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benvon/todo-assistant/internal/models"
)

const (
	// MaxTitleLength and MaxDescriptionLength are the repaired field limits in characters
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000

	// DefaultTime is used whenever the time is absent or malformed
	DefaultTime = "09:00"
	// PlaceholderTitle replaces an empty title
	PlaceholderTitle = "New task"

	ellipsis = "..."

	// MaxRepairedTitleLength and MaxRepairedDescriptionLength bound a repaired
	// field including the ellipsis appended on truncation.
	MaxRepairedTitleLength       = MaxTitleLength + len(ellipsis)
	MaxRepairedDescriptionLength = MaxDescriptionLength + len(ellipsis)
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// RepairDraft builds a draft from untrusted completer output. Every field is
// validated and replaced by its default when missing or out of bounds, so the
// result is consistent whatever fields holds. Repairing an already valid
// draft returns it unchanged.
func RepairDraft(fields map[string]any, ref time.Time) *models.TaskDraft {
	return &models.TaskDraft{
		Title:       repairTitle(fields["title"]),
		Description: repairDescription(fields["description"]),
		DueDate:     repairDate(fields["due_date"], ref),
		DueTime:     repairTime(fields["due_time"]),
		Priority:    repairPriority(fields["priority"]),
		Category:    repairCategory(fields["category"]),
	}
}

func repairTitle(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return PlaceholderTitle
	}
	return truncate(s, MaxTitleLength)
}

func repairDescription(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = truncate(s, MaxDescriptionLength)
	return &s
}

func repairDate(v any, ref time.Time) string {
	refDay := dateOf(ref)
	fallback := refDay.Format(dateLayout)

	s, ok := v.(string)
	if !ok || !datePattern.MatchString(s) {
		return fallback
	}
	parsed, err := time.ParseInLocation(dateLayout, s, ref.Location())
	if err != nil {
		return fallback
	}
	if parsed.Before(refDay) {
		return fallback
	}
	return s
}

func repairTime(v any) string {
	s, ok := v.(string)
	if !ok || !timePattern.MatchString(s) {
		return DefaultTime
	}
	return s
}

func repairPriority(v any) models.Priority {
	s, _ := v.(string)
	p := models.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return models.PriorityMedium
	}
	return p
}

func repairCategory(v any) []string {
	fallback := []string{models.CategoryPersonal}

	list, ok := v.([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return fallback
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// truncate cuts s to max characters and appends an ellipsis when it was longer.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}
