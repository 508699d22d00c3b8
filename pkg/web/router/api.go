package router

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"mail-password-proxy/pkg/bootstrap"
	"mail-password-proxy/pkg/common/config"
	"mail-password-proxy/pkg/web/handler"
	"mail-password-proxy/pkg/web/middleware"
)

// RegisterAPIs 注册所有API路由
func RegisterAPIs(h *server.Hertz, cfg *config.Config, comps *bootstrap.Components) {
	healthHandler := handler.NewHealthCheckHandler(healthChecks(cfg, comps)...)
	proxyHandler := handler.NewProxyHandler(comps.Proxy, cfg.Middleware.CORS)

	// 注册全局中间件（按执行顺序）
	h.Use(
		middleware.RecoveryMiddleware(cfg),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(cfg.Middleware.CORS),
		middleware.SecurityCheckMiddleware(cfg.Middleware.Security),
		middleware.TimeoutMiddleware(cfg.Middleware.Timeout.RequestTimeout),
	)

	// 基础接口组
	h.GET("/health", healthHandler.AdvancedHealthCheck)
	if cfg.Metrics.Enabled && comps.Metrics != nil {
		h.GET(cfg.Metrics.Path, wrapHTTPHandler(comps.Metrics.Handler()))
	}

	// 代理接口
	h.POST(cfg.Proxy.Path, proxyHandler.ChangePassword)
	h.OPTIONS(cfg.Proxy.Path, proxyHandler.Preflight)
	h.NoMethod(proxyHandler.MethodNotAllowed)
}

func healthChecks(cfg *config.Config, comps *bootstrap.Components) []handler.ComponentCheck {
	checks := []handler.ComponentCheck{handler.UpstreamCheck(cfg.Proxy.Upstream.URL)}
	if comps.AuditRepo != nil {
		checks = append(checks, handler.DatabaseCheck("audit_db", comps.AuditRepo))
	}
	return checks
}

// wrapHTTPHandler 把 net/http 的 Handler（promhttp）挂到 Hertz 路由上
func wrapHTTPHandler(h http.Handler) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		req, err := adaptor.GetCompatRequest(&ctx.Request)
		if err != nil {
			hlog.CtxErrorf(c, "convert request for %s failed: %v", ctx.Path(), err)
			ctx.AbortWithStatus(consts.StatusInternalServerError)
			return
		}
		h.ServeHTTP(adaptor.GetCompatResponseWriter(&ctx.Response), req.WithContext(c))
	}
}
