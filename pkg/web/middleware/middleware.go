package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"github.com/hertz-contrib/cors"

	"mail-password-proxy/pkg/common/config"
	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/web/model"
)

// LoggerMiddleware 结构化的请求日志记录，同时分配请求 ID
func LoggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()

		id := string(ctx.GetHeader(model.HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Header(model.HeaderRequestID, id)

		ctx.Next(c) // 放行到后续处理器
		latency := time.Since(start)

		// 请求体里有密码，只记录请求行
		hlog.CtxInfof(c, "| %s | %3d | %13v | %15s | %-7s | %s | UA=%s",
			id,
			ctx.Response.StatusCode(),
			latency,
			ctx.ClientIP(),
			ctx.Method(),
			ctx.Path(),
			ctx.GetHeader("User-Agent"),
		)
	}
}

/*
	启动时指定环境变量
	export APP_ENV=production
	go run ./cmd/web
*/

// RecoveryMiddleware 异常捕获，生产环境隐藏细节
func RecoveryMiddleware(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())

				hlog.CtxErrorf(c, "[PANIC RECOVERED] %v\n%s", err, stack)

				if cfg.IsProd() {
					ctx.AbortWithStatusJSON(500, map[string]interface{}{
						"error": "Internal proxy error",
					})
				} else { // 开发环境显示详细错误
					ctx.AbortWithStatusJSON(500, map[string]interface{}{
						"error": fmt.Sprintf("Internal proxy error: %v", err),
						"stack": strings.Split(stack, "\n"),
					})
				}
			}
		}()
		ctx.Next(c)
	}
}

// CORSMiddleware 跨域配置；AllowOrigins 含 "*" 时放开所有来源
func CORSMiddleware(corsConfig config.CORSConfig) app.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     corsConfig.AllowMethods,
		AllowHeaders:     corsConfig.AllowHeaders,
		ExposeHeaders:    corsConfig.ExposeHeaders,
		AllowCredentials: corsConfig.AllowCredentials,
		MaxAge:           corsConfig.MaxAge.Std(),
	}

	if corsConfig.AllowsAnyOrigin() {
		cc.AllowAllOrigins = true
		handler := cors.New(cc)
		// 没有 Origin 的请求 cors 不处理，后续中间件提前返回的错误响应也要带上通配来源
		return func(c context.Context, ctx *app.RequestContext) {
			ctx.Response.Header.Set(model.HeaderAllowOrigin, "*")
			handler(c, ctx)
		}
	}

	cc.AllowOrigins = corsConfig.AllowOrigins
	if len(corsConfig.TrustedDomains) > 0 {
		// 动态校验来源
		cc.AllowOriginFunc = func(origin string) bool {
			for _, domain := range corsConfig.TrustedDomains {
				if strings.HasSuffix(origin, domain) {
					return true
				}
			}
			return false
		}
	}
	return cors.New(cc)
}

// TimeoutMiddleware 给后续处理器加上 deadline，上游调用据此缩短超时
func TimeoutMiddleware(seconds int) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if seconds <= 0 {
			ctx.Next(c)
			return
		}
		timeoutCtx, cancel := context.WithTimeout(c, time.Duration(seconds)*time.Second)
		defer cancel()

		ctx.Next(timeoutCtx)

		if timeoutCtx.Err() == context.DeadlineExceeded {
			hlog.CtxWarnf(c, "request exceeded %ds path=%s", seconds, ctx.Path())
		}
	}
}

// SecurityCheckMiddleware 全局安全校验中间件
func SecurityCheckMiddleware(sec config.SecurityConfig) app.HandlerFunc {
	allowed := make(map[string]bool, len(sec.AllowedMethods))
	for _, m := range sec.AllowedMethods {
		allowed[strings.ToUpper(m)] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		// 防护机制1：请求体大小限制
		if sec.MaxBodySize > 0 && int64(ctx.Request.Header.ContentLength()) > sec.MaxBodySize {
			securityResponse(ctx, errs.ErrBodyTooLarge)
			return
		}

		// 防护机制2：检查HTTP方法
		if len(allowed) > 0 && !allowed[string(ctx.Method())] {
			securityResponse(ctx, errs.ErrMethodNotAllowed)
			return
		}

		ctx.Next(c)
	}
}

// 安全响应统一处理
func securityResponse(ctx *app.RequestContext, err error) {
	status, body := errs.Render(err)
	hlog.Warnf("SecurityAlert[%d]: %s path=%s", status, body["error"], ctx.Path())
	ctx.AbortWithStatusJSON(status, body)
}
