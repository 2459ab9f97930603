package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToneType selects which persona-voice modifier is appended to the base
// context before each outbound call. Session-local; never mutates the Character.
type ToneType string

// Tones
const (
	ToneOriginal ToneType = "original"
	ToneGenZ     ToneType = "genZ"
)

// ChatMessage is one entry in a session's ordered, append-only transcript
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
