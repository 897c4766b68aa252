package validation

import (
	"strings"
	"testing"

	"github.com/benvon/whatodo/internal/models"
)

func TestTaskInputValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   models.TaskInput
		wantErr bool
	}{
		{
			name:  "minimal",
			input: models.TaskInput{Title: "Write report", EstimatedMinutes: 60},
		},
		{
			name: "all enums set",
			input: models.TaskInput{
				Title:            "Gym",
				Priority:         models.PriorityMedium,
				EstimatedMinutes: 30,
				Date:             "2026-10-15",
				TimePreference:   models.TimePreferenceEvening,
			},
		},
		{name: "missing title", input: models.TaskInput{EstimatedMinutes: 30}, wantErr: true},
		{name: "zero minutes", input: models.TaskInput{Title: "x"}, wantErr: true},
		{name: "bad priority", input: models.TaskInput{Title: "x", EstimatedMinutes: 5, Priority: "urgent"}, wantErr: true},
		{name: "bad band", input: models.TaskInput{Title: "x", EstimatedMinutes: 5, TimePreference: "night"}, wantErr: true},
		{name: "bad date", input: models.TaskInput{Title: "x", EstimatedMinutes: 5, Date: "15/10/2026"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsValidation(t *testing.T) {
	t.Parallel()

	if err := Struct(models.DefaultSettings()); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
	err := Struct(models.Settings{AIModel: "gpt-2"})
	if err == nil || !strings.Contains(err.Error(), "ai_model") {
		t.Errorf("expected ai_model failure, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	got := SanitizeText("  hello\x00 world\n\tok\x07  ")
	if got != "hello world\n\tok" {
		t.Errorf("SanitizeText() = %q", got)
	}
}
