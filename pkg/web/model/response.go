package model

import "time"

// 响应数据结构
type (
	HealthStatus struct {
		Status     string            `json:"status"`
		Timestamp  time.Time         `json:"timestamp"`
		Uptime     string            `json:"uptime"`
		Components []ComponentStatus `json:"components,omitempty"`
	}

	ComponentStatus struct {
		Name    string        `json:"name"`
		Status  string        `json:"status"`
		IsCore  bool          `json:"is_core"` // 关键组件异常时整体降级
		Latency time.Duration `json:"latency,omitempty"`
		Error   string        `json:"error,omitempty"`
	}
)

// CORS 响应头
const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
	HeaderMaxAge       = "Access-Control-Max-Age"
	HeaderRequestID    = "X-Request-ID"
)
