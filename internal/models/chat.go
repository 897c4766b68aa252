package models

import "time"

// ChatRole identifies who authored a chat message
type ChatRole string

const (
	ChatRoleUser   ChatRole = "user"
	ChatRoleAI     ChatRole = "ai"
	ChatRoleSystem ChatRole = "system"
)

// ChatMessage represents one entry in the conversation log
type ChatMessage struct {
	Role      ChatRole   `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
