package config

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN 根据驱动拼接连接串
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}

	charsetParam := "charset=utf8mb4&parseTime=True&loc=Local"

	// 自动切换连接方式
	if d.UseUnixSock {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?%s",
			d.Username,
			d.Password,
			d.Host, // 这里host存储的是socket路径
			d.DBName,
			charsetParam)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
		charsetParam)
}

// InitDB 打开审计数据库并设置连接池
func (c *Config) InitDB() (*gorm.DB, error) {
	d := c.Audit.Database

	var dialector gorm.Dialector
	switch d.Driver {
	case "mysql", "":
		dialector = mysql.Open(d.DSN())
	case "sqlite":
		dialector = sqlite.Open(d.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.Driver)
	}

	// 配置GORM日志级别
	gormConfig := &gorm.Config{}
	switch d.LogLevel {
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	case "error":
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	case "warn":
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(d.MinPoolSize)
	sqlDB.SetMaxOpenConns(d.MaxPoolSize)

	return db, nil
}
