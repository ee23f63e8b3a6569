package models

// TaskDraft is the normalizer output: a task proposal that has not been stored.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	DueDate     string   `json:"due_date"`
	DueTime     string   `json:"due_time"`
	Priority    Priority `json:"priority"`
	Category    []string `json:"category"`
}
