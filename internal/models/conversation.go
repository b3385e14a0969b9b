package models

import "time"

// Conversation is one website-building session.
type Conversation struct {
	ID                  string       `gorm:"primaryKey" json:"id"`
	UserID              string       `gorm:"not null;index" json:"userId"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	CurrentGenerationID *string      `json:"currentGenerationId"`
	Generations         []Generation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversation"
}

// ConversationSummary is a conversation joined with its current generation.
type ConversationSummary struct {
	Conversation
	CurrentGeneration *Generation `json:"currentGeneration"`
}
