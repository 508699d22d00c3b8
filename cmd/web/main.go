package main

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"mail-password-proxy/pkg/bootstrap"
	"mail-password-proxy/pkg/common/config"
	"mail-password-proxy/pkg/web/router"
)

func main() {
	// 初始化配置
	cfg := config.Load()
	cfg.ApplyLogLevel()

	// 组装上游客户端、审计和指标
	comps, cleanup, err := bootstrap.Build(cfg)
	if err != nil {
		panic("Failed to initialize proxy: " + err.Error())
	}

	// 创建Hertz实例并注册路由
	h := router.NewServer(cfg, comps)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		cleanup()
	})

	hlog.Infof("password proxy listening on %s path=%s upstream=%s",
		cfg.Server.Address, cfg.Proxy.Path, cfg.Proxy.Upstream.URL)

	// 启动服务
	h.Spin()
}
