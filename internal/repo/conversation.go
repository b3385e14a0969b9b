package repo

import (
	"context"
	"sitegen-backend/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ConversationRepo struct {
	db *gorm.DB
}

type ConversationRepoInterface interface {
	GetOwned(ctx context.Context, id string, userID string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	Delete(ctx context.Context, id string) error
}

func NewConversationRepository(db *gorm.DB) ConversationRepoInterface {
	return &ConversationRepo{db: db}
}

// GetOwned returns nil, nil when the conversation does not exist or belongs to
// another user.
func (r *ConversationRepo) GetOwned(ctx context.Context, id string, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get owned conversation")
	}
	return &conv, nil
}

// ListByUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&convs).Error
	return convs, errors.Wrap(err, "list conversations")
}

// Delete removes the conversation and all of its generations.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Generation{}).Error; err != nil {
			return errors.Wrap(err, "delete generations")
		}
		if err := tx.Where("id = ?", id).Delete(&models.Conversation{}).Error; err != nil {
			return errors.Wrap(err, "delete conversation")
		}
		return nil
	})
}
