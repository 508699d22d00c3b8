package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mail-password-proxy/pkg/core/audit/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接各自独立
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func TestRecordAssignsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAttemptRepository(db)

	err := repo.Record(context.Background(), model.Attempt{
		Username:       "box@firstmail.ltd",
		KeyFingerprint: "abcd",
		Outcome:        model.OutcomeRelayed,
		UpstreamStatus: 200,
		LatencyMS:      42,
	})
	require.NoError(t, err)

	var stored []model.Attempt
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].ID, 36)
	assert.Equal(t, "box@firstmail.ltd", stored[0].Username)
	assert.Equal(t, 200, stored[0].UpstreamStatus)
	assert.False(t, stored[0].CreatedAt.IsZero())
}

func TestRecordDuplicateID(t *testing.T) {
	repo := NewGormAttemptRepository(setupTestDB(t))
	ctx := context.Background()

	a := model.Attempt{ID: "11111111-1111-1111-1111-111111111111", Outcome: model.OutcomeFailed}
	require.NoError(t, repo.Record(ctx, a))
	assert.Error(t, repo.Record(ctx, a))
}

func TestCountSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAttemptRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Record(ctx, model.Attempt{Username: "a@x", Outcome: model.OutcomeRelayed}))
	}
	require.NoError(t, repo.Record(ctx, model.Attempt{Username: "b@x", Outcome: model.OutcomeRelayed}))

	// 一条旧记录不计入窗口
	old := model.Attempt{ID: "old", Username: "a@x", Outcome: model.OutcomeRelayed, CreatedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, db.Create(&old).Error)

	n, err := repo.CountSince(ctx, "a@x", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestPing(t *testing.T) {
	repo := NewGormAttemptRepository(setupTestDB(t))
	assert.NoError(t, repo.Ping(context.Background()))
}
