package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/whatodo/internal/models"
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
	if err := Validate.RegisterValidation("time_preference", validateTimePreference); err != nil {
		panic(fmt.Sprintf("failed to register time_preference validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("ai_model", validateAIModel); err != nil {
		panic(fmt.Sprintf("failed to register ai_model validator: %v", err))
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	return ValidatePriority(fl.Field().String()) == nil
}

func validateTimePreference(fl validator.FieldLevel) bool {
	return ValidateTimePreference(fl.Field().String()) == nil
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

func validateAIModel(fl validator.FieldLevel) bool {
	return models.AIModel(fl.Field().String()).IsKnown()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	switch models.Priority(value) {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'critical', 'high', 'medium', or 'low')", value)
	}
}

// ValidateTimePreference validates a TimePreference string value; empty means no preference
func ValidateTimePreference(value string) error {
	switch models.TimePreference(value) {
	case models.TimePreferenceNone, models.TimePreferenceMorning, models.TimePreferenceAfternoon, models.TimePreferenceEvening:
		return nil
	default:
		return fmt.Errorf("invalid time_preference: %s (must be 'morning', 'afternoon', or 'evening')", value)
	}
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'todo', 'in-progress', or 'done')", value)
	}
}

// Struct validates s and flattens validator.ValidationErrors into one readable error
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
