package models

import "time"

// ManagedModel is an entry in the model catalog. Prices are USD per 1K tokens
// and drive both cost accounting and quota enforcement.
type ManagedModel struct {
	ID             string  `json:"id" gorm:"primaryKey;size:128"`
	Provider       string  `json:"provider" gorm:"size:64;not null"`
	DisplayName    string  `json:"display_name" gorm:"size:256;not null"`
	InputPer1KUSD  float64 `json:"input_per_1k_usd" gorm:"column:input_per_1k_usd"`
	OutputPer1KUSD float64 `json:"output_per_1k_usd" gorm:"column:output_per_1k_usd"`
	ContextWindow  int     `json:"context_window"`
	Enabled        bool    `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cost prices a token count pair against this model.
func (m *ManagedModel) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*m.InputPer1KUSD +
		float64(outputTokens)/1000*m.OutputPer1KUSD
}
