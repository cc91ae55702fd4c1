package models

import "time"

// QuotaTier is a named monthly spend limit that users are assigned to.
type QuotaTier struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Name        string  `json:"name" gorm:"uniqueIndex;size:128;not null"`
	Description string  `json:"description" gorm:"size:512"`
	MonthlyUSD  float64 `json:"monthly_usd" gorm:"not null"`

	// Default marks the tier applied to users with no explicit assignment.
	// At most one tier should carry this flag.
	Default bool `json:"default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuotaAssignment binds a user to a quota tier.
type QuotaAssignment struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:255"`
	TierID    string    `json:"tier_id" gorm:"size:36;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuotaOverride grants a user a temporary limit that supersedes their tier.
type QuotaOverride struct {
	UserID     string    `json:"user_id" gorm:"primaryKey;size:255"`
	MonthlyUSD float64   `json:"monthly_usd" gorm:"not null"`
	Reason     string    `json:"reason" gorm:"size:512"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Active reports whether the override still applies at the given instant.
func (o *QuotaOverride) Active(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}
