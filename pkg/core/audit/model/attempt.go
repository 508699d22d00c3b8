package model

import (
	"time"

	"gorm.io/gorm"
)

// 审计结果
const (
	OutcomeRelayed  = "relayed"  // 上游已响应（任意状态码）
	OutcomeRejected = "rejected" // 本地校验未通过
	OutcomeFailed   = "failed"   // 解析或网络错误
)

// Attempt 一次改密尝试。不保存密码，API key 只保存指纹
type Attempt struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	Username       string    `gorm:"type:varchar(255);index"`
	KeyFingerprint string    `gorm:"type:varchar(32);index"`
	Outcome        string    `gorm:"type:varchar(16);not null"`
	UpstreamStatus int       `gorm:"not null;default:0"`
	LatencyMS      int64     `gorm:"not null;default:0"`
	ClientIP       string    `gorm:"type:varchar(64)"`
	CreatedAt      time.Time `gorm:"index;autoCreateTime"`
}

// TableName 定义映射表名
func (Attempt) TableName() string {
	return "password_change_attempts"
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Attempt{})
}
