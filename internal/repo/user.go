package repo

import (
	"context"
	"sitegen-backend/internal/models"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo struct {
	db *gorm.DB
}

type UserRepoInterface interface {
	Upsert(ctx context.Context, user *models.User) error
}

func NewUserRepository(db *gorm.DB) UserRepoInterface {
	return &UserRepo{db: db}
}

// Upsert inserts the user or refreshes the profile fields of an existing row.
func (r *UserRepo) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "email_verified", "image", "updated_at"}),
	}).Create(user).Error
	return errors.Wrap(err, "upsert user")
}
