package service

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/go-playground/validator/v10"

	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/core/audit"
	auditmodel "mail-password-proxy/pkg/core/audit/model"
	"mail-password-proxy/pkg/core/password/model"
)

const jsonMediaType = "application/json"

// Forwarder 把校验过的请求发往上游
type Forwarder interface {
	Forward(ctx context.Context, req model.ChangeRequest) (*model.Result, error)
}

// Observer 接收每次请求的结果，用于指标统计
type Observer interface {
	ObserveRequest(outcome string, status int, upstream time.Duration)
}

// RequestMeta 传输层附带的信息
type RequestMeta struct {
	ContentType string
	ClientIP    string
}

type ProxyService struct {
	forwarder Forwarder
	validate  *validator.Validate
	sink      audit.Sink
	observer  Observer
}

type Option func(*ProxyService)

func WithAuditSink(sink audit.Sink) Option {
	return func(s *ProxyService) { s.sink = sink }
}

func WithObserver(o Observer) Option {
	return func(s *ProxyService) { s.observer = o }
}

func NewProxyService(forwarder Forwarder, opts ...Option) *ProxyService {
	s := &ProxyService{
		forwarder: forwarder,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChangePassword 解析、校验并转发一次改密请求。
// 返回的 error 均可交给 errs.Render 生成响应；上游的非 2xx 不算 error。
func (s *ProxyService) ChangePassword(ctx context.Context, meta RequestMeta, body []byte) (*model.Result, error) {
	req, err := s.parse(meta.ContentType, body)
	if err != nil {
		outcome := auditmodel.OutcomeFailed
		if errs.IsClientError(err) {
			outcome = auditmodel.OutcomeRejected
		}
		hlog.CtxInfof(ctx, "[PROXY] %s user=%q: %v", outcome, req.Username, err)
		s.finish(ctx, meta, req, outcome, errs.StatusCode(err), 0)
		return nil, err
	}

	start := time.Now()
	result, err := s.forwarder.Forward(ctx, req)
	latency := time.Since(start)
	if err != nil {
		hlog.CtxErrorf(ctx, "[PROXY] upstream call failed user=%q latency=%v: %v", req.Username, latency, err)
		err = errs.NewUpstreamFailure(err)
		s.finish(ctx, meta, req, auditmodel.OutcomeFailed, errs.StatusCode(err), latency)
		return nil, err
	}

	hlog.CtxInfof(ctx, "[PROXY] relayed user=%q status=%d latency=%v", req.Username, result.StatusCode, latency)
	s.finish(ctx, meta, req, auditmodel.OutcomeRelayed, result.StatusCode, latency)
	return result, nil
}

// parse 出错时仍返回已解出的字段，方便审计
func (s *ProxyService) parse(contentType string, body []byte) (model.ChangeRequest, error) {
	var req model.ChangeRequest

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != jsonMediaType {
			return req, errs.NewUnsupportedContentType(contentType)
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return req, errs.ErrMissingBody
	}

	if err := sonic.Unmarshal(body, &req); err != nil {
		return model.ChangeRequest{}, errs.NewInvalidJSON(err)
	}

	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				hlog.Debugf("[PROXY] field %s failed %q", fe.Field(), fe.Tag())
			}
		}
		return req, errs.ErrMissingFields
	}

	return req, nil
}

// status 为返回给客户端的状态码，只有 relayed 时才等于上游状态码
func (s *ProxyService) finish(ctx context.Context, meta RequestMeta, req model.ChangeRequest, outcome string, status int, latency time.Duration) {
	if s.observer != nil {
		s.observer.ObserveRequest(outcome, status, latency)
	}
	if s.sink != nil {
		upstreamStatus := 0
		if outcome == auditmodel.OutcomeRelayed {
			upstreamStatus = status
		}
		s.sink.Record(ctx, audit.Entry{
			Username:       req.Username,
			APIKey:         req.APIKey,
			Outcome:        outcome,
			UpstreamStatus: upstreamStatus,
			Latency:        latency,
			ClientIP:       meta.ClientIP,
		})
	}
}
