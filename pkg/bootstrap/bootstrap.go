package bootstrap

import (
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"mail-password-proxy/pkg/common/config"
	"mail-password-proxy/pkg/common/metrics"
	"mail-password-proxy/pkg/core/audit"
	auditmodel "mail-password-proxy/pkg/core/audit/model"
	"mail-password-proxy/pkg/core/audit/repository/dao"
	daoimpl "mail-password-proxy/pkg/core/audit/repository/dao/impl"
	"mail-password-proxy/pkg/core/password/service"
	"mail-password-proxy/pkg/core/password/upstream"
)

// Components 两种传输层共享的依赖
type Components struct {
	Proxy     *service.ProxyService
	Upstream  *upstream.Client
	Metrics   *metrics.Metrics
	AuditRepo dao.AttemptRepository // 未启用审计时为 nil
}

// Build 按配置组装依赖，返回的 cleanup 用于关闭数据库连接
func Build(cfg *config.Config) (*Components, func(), error) {
	cleanup := func() {}

	client, err := upstream.NewClient(cfg.Proxy.Upstream)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init upstream client: %w", err)
	}

	comps := &Components{Upstream: client}
	var opts []service.Option

	if cfg.Metrics.Enabled {
		comps.Metrics = metrics.New()
		opts = append(opts, service.WithObserver(comps.Metrics))
	}

	if cfg.Audit.Enabled {
		db, err := cfg.InitDB()
		if err != nil {
			return nil, cleanup, fmt.Errorf("init audit database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			cleanup = func() {
				if err := sqlDB.Close(); err != nil {
					hlog.Warnf("close audit database: %v", err)
				}
			}
		}
		if err := auditmodel.AutoMigrate(db); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate audit tables: %w", err)
		}

		repo := daoimpl.NewGormAttemptRepository(db)
		comps.AuditRepo = repo
		opts = append(opts, service.WithAuditSink(audit.NewRecorder(repo, cfg.Audit.FingerprintKey)))
		hlog.Infof("audit enabled driver=%s", cfg.Audit.Database.Driver)
	}

	comps.Proxy = service.NewProxyService(client, opts...)
	return comps, cleanup, nil
}
