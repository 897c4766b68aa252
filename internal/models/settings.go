package models

// AIModel names one of the supported text-completion models
type AIModel string

const (
	AIModelGPT4oMini     AIModel = "gpt-4o-mini"
	AIModelGPT41Nano     AIModel = "gpt-4.1-nano"
	AIModelGemini20Flash AIModel = "gemini-2.0-flash"
	AIModelGemini25Flash AIModel = "gemini-2.5-flash"
	AIModelClaudeSonnet  AIModel = "claude-sonnet"
)

// DefaultAIModel is used until the user picks another model
const DefaultAIModel = AIModelGPT41Nano

// AIModels is the closed set of selectable models
var AIModels = []AIModel{
	AIModelGPT4oMini,
	AIModelGPT41Nano,
	AIModelGemini20Flash,
	AIModelGemini25Flash,
	AIModelClaudeSonnet,
}

// IsKnown reports whether m belongs to the supported set
func (m AIModel) IsKnown() bool {
	for _, known := range AIModels {
		if known == m {
			return true
		}
	}
	return false
}

// View is the screen the user last had open
type View string

const (
	ViewTasks     View = "tasks"
	ViewTimetable View = "timetable"
	ViewSettings  View = "settings"
)

// Settings holds user preferences that survive restarts
type Settings struct {
	AIModel    AIModel `json:"ai_model" validate:"ai_model"`
	ActiveView View    `json:"active_view" validate:"omitempty,oneof=tasks timetable settings"`
}

// DefaultSettings returns the settings used before anything is persisted
func DefaultSettings() Settings {
	return Settings{AIModel: DefaultAIModel, ActiveView: ViewTasks}
}
