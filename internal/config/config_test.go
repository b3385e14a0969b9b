package config

import (
	"path/filepath"
	"testing"
	"time"

	"sitegen-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("DEPLOY_POLL_DELAY", "")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "3000", s.Port)
	assert.Equal(t, 30*time.Second, s.GenerationTimeout)
	assert.Equal(t, 3*time.Second, s.DeployPollDelay)
	assert.Equal(t, "https://api.netlify.com/api/v1", s.NetlifyAPIURL)
	assert.Error(t, s.RequireServe())
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Setenv("DB_URL", "sqlite://test.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("NETLIFY_ACCESS_TOKEN", "nf-token")
	t.Setenv("AUTO_MIGRATE", "false")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "sqlite://test.db", s.DBURL)
	assert.Equal(t, 45*time.Second, s.GenerationTimeout)
	assert.Equal(t, "nf-token", s.NetlifyToken)
	assert.False(t, s.AutoMigrate)
	assert.NoError(t, s.RequireServe())
}

func TestDialectorFor(t *testing.T) {
	d, local := dialectorFor("sqlite://local.db")
	assert.True(t, local)
	assert.Equal(t, "sqlite", d.Name())

	d, local = dialectorFor("postgres://u:p@localhost:5432/db")
	assert.False(t, local)
	assert.Equal(t, "postgres", d.Name())
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Warn, gormLogLevel(""))
	assert.Equal(t, logger.Info, gormLogLevel("INFO"))
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
}

func TestMigrateDropsLegacyUniqueEmailIndex(t *testing.T) {
	require.NoError(t, ConnectDB("sqlite://"+filepath.Join(t.TempDir(), "sitegen.db"), "silent"))
	t.Cleanup(func() { CloseDB() })

	require.NoError(t, MigrateAllModels(true))
	require.NoError(t, DB.Exec(`CREATE UNIQUE INDEX idx_user_email ON "user" (email)`).Error)

	require.NoError(t, MigrateAllModels(true))
	assert.False(t, DB.Migrator().HasIndex(&models.User{}, models.LegacyEmailIndex))
	assert.True(t, DB.Migrator().HasIndex(&models.User{}, "idx_user_email_lookup"))

	require.NoError(t, DB.Create(&models.User{ID: "a"}).Error)
	require.NoError(t, DB.Create(&models.User{ID: "b"}).Error)
}
