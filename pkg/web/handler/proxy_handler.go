package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"mail-password-proxy/pkg/common/config"
	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/core/password/service"
	"mail-password-proxy/pkg/web/model"
)

type ProxyHandler struct {
	svc            *service.ProxyService
	allowAnyOrigin bool
	allowMethods   string
	allowHeaders   string
	maxAge         string
}

func NewProxyHandler(svc *service.ProxyService, cors config.CORSConfig) *ProxyHandler {
	return &ProxyHandler{
		svc:            svc,
		allowAnyOrigin: cors.AllowsAnyOrigin(),
		allowMethods:   strings.Join(cors.AllowMethods, ", "),
		allowHeaders:   strings.Join(cors.AllowHeaders, ", "),
		maxAge:         strconv.FormatInt(int64(cors.MaxAge.Std()/time.Second), 10),
	}
}

// ChangePassword 转发改密请求，透传上游状态码和 JSON
func (h *ProxyHandler) ChangePassword(ctx context.Context, c *app.RequestContext) {
	h.allowOrigin(c)

	result, err := h.svc.ChangePassword(ctx, service.RequestMeta{
		ContentType: string(c.ContentType()),
		ClientIP:    c.ClientIP(),
	}, c.Request.Body())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(result.StatusCode, consts.MIMEApplicationJSON, result.Body)
}

// Preflight 没带 Origin 的 OPTIONS 不会被 CORS 中间件拦截，由这里兜底
func (h *ProxyHandler) Preflight(ctx context.Context, c *app.RequestContext) {
	h.allowOrigin(c)
	c.Header(model.HeaderAllowMethods, h.allowMethods)
	c.Header(model.HeaderAllowHeaders, h.allowHeaders)
	c.Header(model.HeaderMaxAge, h.maxAge)
	c.AbortWithStatus(consts.StatusNoContent)
}

// MethodNotAllowed 返回 JSON 格式的 405
func (h *ProxyHandler) MethodNotAllowed(ctx context.Context, c *app.RequestContext) {
	h.allowOrigin(c)
	respondError(c, errs.ErrMethodNotAllowed)
}

func (h *ProxyHandler) allowOrigin(c *app.RequestContext) {
	if h.allowAnyOrigin {
		c.Header(model.HeaderAllowOrigin, "*")
	}
}

// 统一错误响应方法
func respondError(c *app.RequestContext, err error) {
	status, body := errs.Render(err)
	c.AbortWithStatusJSON(status, body)
}
