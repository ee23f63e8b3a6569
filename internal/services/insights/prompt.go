package insights

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
)

const systemPrompt = "You are a productivity coach reviewing a person's to-do list. " +
	"Write in the language the task titles are written in. Answer with a single JSON object matching the schema."

// BuildPrompt describes stats in prose and attaches them as JSON
func BuildPrompt(stats models.TaskStats, now time.Time) (string, error) {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s, as of %s.\n", periodLabel(stats.Period), now.Format(time.RFC3339))
	fmt.Fprintf(&b, "%d tasks, %d completed, %d still open (%d%% complete). %d overdue, %d completed on time.\n",
		stats.Overall.Total, stats.Overall.Completed, stats.Overall.Incomplete,
		stats.Overall.CompletionRate, stats.Overdue, stats.OnTimeCompleted)
	if stats.MostProductiveSlot != "" {
		fmt.Fprintf(&b, "Most productive time of day: %s.\n", stats.MostProductiveSlot)
	}
	fmt.Fprintf(&b, "Share of open tasks that are high priority: %.0f%%.\n", stats.DeferralRatio*100)
	if len(stats.UrgentCandidates) > 0 {
		b.WriteString("Open tasks by urgency:\n")
		for i, title := range stats.UrgentCandidates {
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
	}
	b.WriteString("\nStatistics:\n")
	b.Write(data)
	b.WriteString("\n\n")
	b.WriteString("Return: summary (two or three sentences), urgentTasks (up to 5 titles picked from the open tasks above), ")
	b.WriteString("insights (3 to 5 observations grounded in the statistics), recommendations (3 to 5 concrete next steps).\n")
	return b.String(), nil
}

func periodLabel(p models.Period) string {
	if p == models.PeriodWeek {
		return "this week"
	}
	return "today"
}
