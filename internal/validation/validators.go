package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("period", validatePeriod); err != nil {
		panic(fmt.Sprintf("failed to register period validator: %v", err))
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	return models.Priority(fl.Field().String()).Valid()
}

func validatePeriod(fl validator.FieldLevel) bool {
	return models.Period(fl.Field().String()).Valid()
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SanitizeCategories trims labels and drops blank ones. The result is never nil.
func SanitizeCategories(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = SanitizeText(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	if !models.Priority(value).Valid() {
		return fmt.Errorf("invalid priority: %s (must be 'high', 'medium', or 'low')", value)
	}
	return nil
}

// ValidatePeriod validates a Period string value
func ValidatePeriod(value string) error {
	if !models.Period(value).Valid() {
		return fmt.Errorf("invalid period: %s (must be 'today' or 'week')", value)
	}
	return nil
}
