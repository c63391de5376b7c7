package models

import (
	"strings"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalises a wire role. The backend labels its replies "model".
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser
	default:
		return RoleAssistant
	}
}

// Message is a single entry of a session transcript
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// UserMessage builds the local copy of a message the user sent.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
