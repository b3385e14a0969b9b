package repo

import (
	"context"
	"testing"

	"sitegen-backend/internal/models"
	"sitegen-backend/internal/tests/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func findUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("id = ?", id).Take(&user).Error)
	return &user
}

func TestUserUpsertRefreshesProfile(t *testing.T) {
	db := testdb.New(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u1", Name: "Old", Email: "a@example.com"}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u1", Name: "New", Email: "b@example.com"}))

	stored := findUser(t, db, "u1")
	assert.Equal(t, "New", stored.Name)
	assert.Equal(t, "b@example.com", stored.Email)
}

func TestUserUpsertAllowsSharedOrMissingEmail(t *testing.T) {
	db := testdb.New(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u1"}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u2"}))

	require.NoError(t, users.Upsert(ctx, &models.User{ID: "old-subject", Email: "same@example.com"}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "new-subject", Email: "same@example.com"}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, "same@example.com", findUser(t, db, "new-subject").Email)
}
