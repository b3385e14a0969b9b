package models

import "time"

// User mirrors the identity provider's user; rows are upserted from token claims.
// The subject is the only key; email may be empty and is not unique.
type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Email         string    `gorm:"not null;index:idx_user_email_lookup" json:"email"`
	EmailVerified bool      `gorm:"not null;default:false" json:"emailVerified"`
	Image         *string   `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LegacyEmailIndex is the unique email index of earlier schemas.
const LegacyEmailIndex = "idx_user_email"

func (User) TableName() string {
	return "user"
}
