package repo

import (
	"context"
	"sitegen-backend/internal/models"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOwnerMismatch is returned when a write targets a conversation owned by someone else.
var ErrOwnerMismatch = errors.New("conversation owned by another user")

// ErrCurrentVersionInUse is returned when deleting the current version of a conversation that has older versions.
var ErrCurrentVersionInUse = errors.New("current version has older versions")

// ErrConversationMissing is returned when a version is appended to an unknown conversation.
var ErrConversationMissing = errors.New("conversation not found")

const emptyResponseClause = "ai_response IS NULL OR TRIM(ai_response) = ''"

type GenerationRepo struct {
	db *gorm.DB
}

type GenerationRepoInterface interface {
	GetByID(ctx context.Context, id string) (*models.Generation, error)
	GetCurrent(ctx context.Context, conversationID string) (*models.Generation, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Generation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Generation, error)
	AppendVersion(ctx context.Context, newConversation *models.Conversation, gen *models.Generation) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	CountEmpty(ctx context.Context) (empty int64, total int64, err error)
	DeleteEmpty(ctx context.Context) (int64, error)
}

func NewGenerationRepository(db *gorm.DB) GenerationRepoInterface {
	return &GenerationRepo{db: db}
}

// GetByID returns nil, nil when the generation does not exist.
func (r *GenerationRepo) GetByID(ctx context.Context, id string) (*models.Generation, error) {
	var gen models.Generation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get generation")
	}
	return &gen, nil
}

// GetCurrent returns the generation flagged current for the conversation, or nil.
func (r *GenerationRepo) GetCurrent(ctx context.Context, conversationID string) (*models.Generation, error) {
	var gen models.Generation
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_current_version = ?", conversationID, true).
		Order("version desc").
		Take(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get current generation")
	}
	return &gen, nil
}

func (r *GenerationRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Generation, error) {
	var gens []models.Generation
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("version asc").
		Find(&gens).Error
	return gens, errors.Wrap(err, "list conversation generations")
}

func (r *GenerationRepo) ListByUser(ctx context.Context, userID string) ([]models.Generation, error) {
	var gens []models.Generation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&gens).Error
	return gens, errors.Wrap(err, "list user generations")
}

// AppendVersion makes gen the current version of its conversation.
//
// Inside one transaction the conversation row is locked, the previous current
// row loses its flag, gen is inserted with version = max(version)+1 and the
// conversation pointer moves to gen. newConversation, when non-nil, is inserted
// first. Concurrent appends on one conversation are serialized by the lock.
func (r *GenerationRepo) AppendVersion(ctx context.Context, newConversation *models.Conversation, gen *models.Generation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if newConversation != nil {
			newConversation.CreatedAt = now
			newConversation.UpdatedAt = now
			if err := tx.Create(newConversation).Error; err != nil {
				return errors.Wrap(err, "create conversation")
			}
		}

		var conv models.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", gen.ConversationID).
			Take(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationMissing
		}
		if err != nil {
			return errors.Wrap(err, "lock conversation")
		}
		if conv.UserID != gen.UserID {
			return ErrOwnerMismatch
		}

		var maxVersion int
		if err := tx.Model(&models.Generation{}).
			Where("conversation_id = ?", conv.ID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return errors.Wrap(err, "read max version")
		}

		if err := tx.Model(&models.Generation{}).
			Where("conversation_id = ? AND is_current_version = ?", conv.ID, true).
			Updates(map[string]interface{}{"is_current_version": false, "updated_at": now}).Error; err != nil {
			return errors.Wrap(err, "clear current version")
		}

		gen.Version = maxVersion + 1
		gen.IsCurrentVersion = true
		gen.CreatedAt = now
		gen.UpdatedAt = now
		if err := tx.Create(gen).Error; err != nil {
			return errors.Wrap(err, "insert generation")
		}

		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]interface{}{"current_generation_id": gen.ID, "updated_at": now}).Error; err != nil {
			return errors.Wrap(err, "move current pointer")
		}
		return nil
	})
}

// UpdateFields applies a partial update and stamps updated_at.
func (r *GenerationRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).Model(&models.Generation{}).Where("id = ?", id).Updates(fields).Error
	return errors.Wrap(err, "update generation")
}

// Delete removes the generation. A current version can only be removed while it
// is the sole version of its conversation; the conversation then becomes empty.
func (r *GenerationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gen models.Generation
		err := tx.Where("id = ?", id).Take(&gen).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "load generation")
		}

		if gen.IsCurrentVersion {
			var conv models.Conversation
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", gen.ConversationID).
				Take(&conv).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrap(err, "lock conversation")
			}
			var others int64
			if err := tx.Model(&models.Generation{}).
				Where("conversation_id = ? AND id <> ?", gen.ConversationID, gen.ID).
				Count(&others).Error; err != nil {
				return errors.Wrap(err, "count versions")
			}
			if others > 0 {
				return ErrCurrentVersionInUse
			}
			if err := tx.Model(&models.Conversation{}).
				Where("id = ?", gen.ConversationID).
				Updates(map[string]interface{}{"current_generation_id": nil, "updated_at": time.Now()}).Error; err != nil {
				return errors.Wrap(err, "clear current pointer")
			}
		}

		return errors.Wrap(tx.Where("id = ?", id).Delete(&models.Generation{}).Error, "delete generation")
	})
}

// CountEmpty counts generations whose response is blank alongside the table total.
func (r *GenerationRepo) CountEmpty(ctx context.Context) (int64, int64, error) {
	var empty, total int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Generation{}).Where(emptyResponseClause).Count(&empty).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count empty generations")
	}
	if err := db.Model(&models.Generation{}).Count(&total).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count generations")
	}
	return empty, total, nil
}

// DeleteEmpty removes generations whose response is blank. Conversations that
// lose their current version are repointed at their highest remaining version.
func (r *GenerationRepo) DeleteEmpty(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orphaned []string
		if err := tx.Model(&models.Generation{}).
			Where(emptyResponseClause).
			Where("is_current_version = ?", true).
			Distinct().
			Pluck("conversation_id", &orphaned).Error; err != nil {
			return errors.Wrap(err, "find affected conversations")
		}

		res := tx.Where(emptyResponseClause).Delete(&models.Generation{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete empty generations")
		}
		deleted = res.RowsAffected

		now := time.Now()
		for _, convID := range orphaned {
			var latest models.Generation
			err := tx.Where("conversation_id = ?", convID).Order("version desc").Take(&latest).Error
			var pointer interface{}
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				pointer = nil
			case err != nil:
				return errors.Wrap(err, "find latest version")
			default:
				pointer = latest.ID
				if err := tx.Model(&models.Generation{}).
					Where("id = ?", latest.ID).
					Updates(map[string]interface{}{"is_current_version": true, "updated_at": now}).Error; err != nil {
					return errors.Wrap(err, "restore current version")
				}
			}
			if err := tx.Model(&models.Conversation{}).
				Where("id = ?", convID).
				Updates(map[string]interface{}{"current_generation_id": pointer, "updated_at": now}).Error; err != nil {
				return errors.Wrap(err, "repoint conversation")
			}
		}
		return nil
	})
	return deleted, err
}
