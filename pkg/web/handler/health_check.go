package handler

import (
	"context"
	"net/url"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"mail-password-proxy/pkg/web/model"
)

// ComponentCheck 单个组件的健康探测
type ComponentCheck func(ctx context.Context) model.ComponentStatus

type HealthCheckHandler struct {
	checks []ComponentCheck
}

func NewHealthCheckHandler(checks ...ComponentCheck) *HealthCheckHandler {
	return &HealthCheckHandler{checks: checks}
}

var startupTime = time.Now()

// AdvancedHealthCheck 增强的健康检查接口
func (h *HealthCheckHandler) AdvancedHealthCheck(ctx context.Context, c *app.RequestContext) {
	status := model.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startupTime).Truncate(time.Second).String(),
	}
	for _, check := range h.checks {
		status.Components = append(status.Components, check(ctx))
	}

	if hasCriticalErrors(status.Components) {
		status.Status = "degraded"
		c.JSON(503, status)
		return
	}

	c.JSON(200, status)
}

func hasCriticalErrors(components []model.ComponentStatus) bool {
	for _, comp := range components {
		// 核心组件状态异常或任意组件发生严重错误
		if (comp.IsCore && comp.Status != "ok") || comp.Status == "critical" {
			return true
		}
	}
	return false
}

// UpstreamCheck 只校验上游地址配置，不真正发请求
func UpstreamCheck(rawURL string) ComponentCheck {
	return func(ctx context.Context) model.ComponentStatus {
		st := model.ComponentStatus{Name: "upstream", Status: "ok", IsCore: true}
		u, err := url.Parse(rawURL)
		switch {
		case err != nil:
			st.Status, st.Error = "error", err.Error()
		case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
			st.Status, st.Error = "error", "upstream url must be absolute http(s)"
		}
		return st
	}
}

// Pinger 能探活的依赖，例如审计库
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck 审计库不可用时代理仍可工作，因此不是核心组件
func DatabaseCheck(name string, p Pinger) ComponentCheck {
	return func(ctx context.Context) model.ComponentStatus {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		start := time.Now()
		st := model.ComponentStatus{Name: name, Status: "ok"}
		if err := p.Ping(ctx); err != nil {
			st.Status, st.Error = "error", err.Error()
		}
		st.Latency = time.Since(start)
		return st
	}
}
