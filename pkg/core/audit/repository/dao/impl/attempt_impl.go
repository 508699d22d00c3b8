package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/core/audit/model"
	"mail-password-proxy/pkg/core/audit/repository/dao"
)

var ErrDuplicateAttempt = errors.New("duplicate attempt id")

type GormAttemptRepository struct {
	db *gorm.DB
}

var _ dao.AttemptRepository = (*GormAttemptRepository)(nil)

func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

// Record 写入一条审计记录，缺省 ID 时自动生成
func (r *GormAttemptRepository) Record(ctx context.Context, attempt model.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		if errs.IsDuplicateError(err) {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("attempt insert failed: %w", errs.WrapGormError(err))
	}
	return nil
}

// CountSince 统计某个账号在指定时间之后的尝试次数
func (r *GormAttemptRepository) CountSince(ctx context.Context, username string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("username = ? AND created_at >= ?", username, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("attempt count failed: %w", errs.WrapGormError(err))
	}
	return count, nil
}

func (r *GormAttemptRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errs.WrapGormError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.WrapGormError(err)
	}
	return nil
}
