package models

import (
	"time"

	"gorm.io/datatypes"
)

type GenerationStatus string

const (
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
	GenerationPending   GenerationStatus = "pending"
)

type DeploymentStatus string

const (
	NotDeployed  DeploymentStatus = "not_deployed"
	Deploying    DeploymentStatus = "deploying"
	Deployed     DeploymentStatus = "deployed"
	DeployFailed DeploymentStatus = "failed"
)

// Live reports whether a hosted site may exist for this status.
func (s DeploymentStatus) Live() bool {
	return s == Deploying || s == Deployed
}

// Generation is one versioned HTML artifact inside a conversation.
type Generation struct {
	ID               string           `gorm:"primaryKey" json:"id"`
	ConversationID   string           `gorm:"not null;uniqueIndex:idx_generation_conversation_version" json:"conversationId"`
	UserID           string           `gorm:"not null;index" json:"userId"`
	Version          int              `gorm:"not null;default:1;uniqueIndex:idx_generation_conversation_version" json:"version"`
	UserPrompt       string           `gorm:"type:text;not null" json:"userPrompt"`
	AIResponse       string           `gorm:"column:ai_response;type:text;not null" json:"aiResponse"`
	PreviousHTML     *string          `gorm:"column:previous_html;type:text" json:"previousHtml"`
	Model            string           `gorm:"not null;default:'gemini-2.5-flash'" json:"model"`
	Status           GenerationStatus `gorm:"not null;default:'completed'" json:"status"`
	IsCurrentVersion bool             `gorm:"not null;default:true;index" json:"isCurrentVersion"`
	DeploymentStatus DeploymentStatus `gorm:"not null;default:'not_deployed'" json:"deploymentStatus"`
	DeploymentURL    *string          `gorm:"column:deployment_url" json:"deploymentUrl"`
	DeploymentID     *string          `gorm:"column:deployment_id" json:"deploymentId"`
	DeployedAt       *time.Time       `json:"deployedAt"`
	Metadata         datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (Generation) TableName() string {
	return "ai_generation"
}

// DeploymentMeta is the provider bookkeeping kept in Generation.Metadata.
type DeploymentMeta struct {
	DeployID  string `json:"deployId,omitempty"`
	FileHash  string `json:"fileHash,omitempty"`
	SiteName  string `json:"siteName,omitempty"`
	Manual    bool   `json:"manual,omitempty"`
	LastState string `json:"lastState,omitempty"`
	Snapshot  string `json:"snapshot,omitempty"`
}
