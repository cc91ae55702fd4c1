package models

import "time"

// UsageEvent records the cost of one completed assistant response. Events are
// persisted for cost analytics and quota enforcement, and mirrored to Kafka
// for downstream consumers.
type UsageEvent struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	UserID       string    `json:"user_id" gorm:"index;size:255;not null"`
	SessionID    string    `json:"session_id" gorm:"index;size:36"`
	MessageID    string    `json:"message_id" gorm:"size:36"`
	ModelID      string    `json:"model_id" gorm:"size:128;not null"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// CostSummary aggregates usage over a time range.
type CostSummary struct {
	TotalUSD     float64         `json:"total_usd"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	Events       int64           `json:"events"`
	ByModel      []ModelCostSlice `json:"by_model"`
}

// ModelCostSlice is the per-model share of a cost summary.
type ModelCostSlice struct {
	ModelID      string  `json:"model_id"`
	TotalUSD     float64 `json:"total_usd"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Events       int64   `json:"events"`
}
