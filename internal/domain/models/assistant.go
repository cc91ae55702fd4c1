package models

import "time"

// Assistant is a user-defined persona: a system prompt plus a model choice
// and optional retrieval configuration.
type Assistant struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	OwnerID      string    `json:"owner_id" gorm:"index;size:255;not null"`
	Name         string    `json:"name" gorm:"size:256;not null"`
	Description  string    `json:"description" gorm:"size:1024"`
	Instructions string    `json:"instructions" gorm:"type:text"`
	ModelID      string    `json:"model_id" gorm:"size:128;not null"`

	// VectorStoreID references the document store backing retrieval for this
	// assistant. Empty when retrieval is disabled.
	VectorStoreID string `json:"vector_store_id,omitempty" gorm:"size:128"`

	// Shared makes the assistant visible to all users, not only the owner.
	Shared bool `json:"shared"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tool is a catalog entry describing a capability assistants may invoke.
// The catalog is code-defined; tools are not persisted.
type Tool struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}
