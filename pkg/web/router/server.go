package router

import (
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"

	"mail-password-proxy/pkg/bootstrap"
	"mail-password-proxy/pkg/common/config"
)

// Hertz 默认的请求体上限
const defaultMaxRequestBodySize = 4 << 20

// ServerOptions 生成 Hertz 服务端选项。
// 服务端的读取上限要高于 SecurityCheckMiddleware 的限制，
// 否则超限请求在读取阶段就被拒绝，拿不到 JSON 错误体和 CORS 头。
func ServerOptions(cfg *config.Config) []hconfig.Option {
	bodyLimit := defaultMaxRequestBodySize
	if size := int(cfg.Middleware.Security.MaxBodySize) * 4; size > bodyLimit {
		bodyLimit = size
	}

	return []hconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithExitWaitTime(5 * time.Second),
		server.WithMaxRequestBodySize(bodyLimit),
	}
}

// NewServer 创建已注册全部路由的 Hertz 实例
func NewServer(cfg *config.Config, comps *bootstrap.Components) *server.Hertz {
	h := server.Default(ServerOptions(cfg)...)
	RegisterAPIs(h, cfg, comps)
	return h
}
