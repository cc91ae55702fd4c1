package models

import "time"

// Message roles stored on chat messages.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Session is a chat conversation owned by a single user.
type Session struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"user_id" gorm:"index;size:255;not null"`
	AssistantID string    `json:"assistant_id,omitempty" gorm:"size:36"`
	ModelID     string    `json:"model_id" gorm:"size:128"`
	Title       string    `json:"title" gorm:"size:512"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is a single chat turn persisted after streaming completes.
type Message struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	SessionID string `json:"session_id" gorm:"index;size:36;not null"`
	Role      string `json:"role" gorm:"size:16;not null"`
	Content   string `json:"content" gorm:"type:text"`
	ModelID   string `json:"model_id,omitempty" gorm:"size:128"`

	// Token counts are zero for user messages; assistant messages carry the
	// usage reported by the model API.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
