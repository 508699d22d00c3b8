package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/app/client/retry"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"mail-password-proxy/pkg/common/config"
	"mail-password-proxy/pkg/core/password/model"
)

const (
	APIKeyHeader    = "X-API-KEY"
	nonJSONFallback = "API returned non-JSON response."
	defaultTimeout  = 10 * time.Second
)

var ErrNoURL = errors.New("upstream url is empty")

// Client 调用邮箱服务商改密接口
type Client struct {
	cli     *client.Client
	url     string
	timeout time.Duration
}

func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// netpoll 不支持 TLS，上游是 https，改用标准库网络层
	cli, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		client.WithDialTimeout(timeout),
		// 改密不是幂等操作，只尝试一次
		client.WithRetryConfig(retry.WithMaxAttemptTimes(1)),
	)
	if err != nil {
		return nil, err
	}

	return &Client{cli: cli, url: cfg.URL, timeout: timeout}, nil
}

func (c *Client) URL() string {
	return c.url
}

// Forward 转发改密请求，只有网络层失败才返回 error，上游的任何状态码都原样带回
func (c *Client) Forward(ctx context.Context, req model.ChangeRequest) (*model.Result, error) {
	payload, err := sonic.Marshal(req.Payload())
	if err != nil {
		return nil, err
	}

	hreq := protocol.AcquireRequest()
	hresp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(hreq)
		protocol.ReleaseResponse(hresp)
	}()

	hreq.SetRequestURI(c.url)
	hreq.SetMethod(consts.MethodPost)
	hreq.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	hreq.Header.Set(APIKeyHeader, req.APIKey)
	hreq.SetBody(payload)

	if err := c.cli.DoTimeout(ctx, hreq, hresp, c.timeoutFor(ctx)); err != nil {
		return nil, err
	}

	status := hresp.StatusCode()
	return &model.Result{
		StatusCode: status,
		Body:       RelayBody(status, hresp.Body()),
	}, nil
}

// 请求自身的 deadline 更早时以它为准
func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

// RelayBody 上游是合法 JSON 时原样复制，否则包装成 {"error", "raw_status"}
func RelayBody(status int, body []byte) []byte {
	if len(bytes.TrimSpace(body)) > 0 && sonic.Valid(body) {
		return append([]byte(nil), body...)
	}

	msg := string(bytes.TrimSpace(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = nonJSONFallback
	}

	out, err := sonic.Marshal(model.NonJSONBody{Error: msg, RawStatus: status})
	if err != nil {
		// NonJSONBody 只有两个基本字段，不会走到这里
		return []byte(`{"error":"` + nonJSONFallback + `"}`)
	}
	return out
}
