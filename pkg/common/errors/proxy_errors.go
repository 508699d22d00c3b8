// pkg/common/errors/proxy_errors.go

/*
  - 分类约定
    ErrorTypePublic  客户端错误，Meta 携带 HTTP 状态码，消息原样返回
    ErrorTypePrivate 内部错误，统一返回 500 且消息加 "Internal proxy error: " 前缀

    // 正确方式:
    if hzteErr, ok := err.(*hzte.Error); ok {
    // 安全访问 Meta
    }
*/
package errors

import (
	"errors"
	"fmt"
	"net/http"

	hzte "github.com/cloudwego/hertz/pkg/common/errors"
)

const internalPrefix = "Internal proxy error: "

// 定义原始错误
var (
	rawErrMissingBody      = errors.New("Request body is missing.")
	rawErrMissingFields    = errors.New("Missing one or more required fields (username, cpassword, npassword, api_key)")
	rawErrMethodNotAllowed = errors.New("Method Not Allowed")
	rawErrBodyTooLarge     = errors.New("request body exceeds max size")

	ErrUpstreamUnreachable = errors.New("proxy failed to reach target API")
	ErrDatabaseInternal    = errors.New("database internal error")
)

// 包装成 Hertz 错误类型
var (
	ErrMissingBody      = hzte.New(rawErrMissingBody, hzte.ErrorTypePublic, http.StatusBadRequest)
	ErrMissingFields    = hzte.New(rawErrMissingFields, hzte.ErrorTypePublic, http.StatusBadRequest)
	ErrMethodNotAllowed = hzte.New(rawErrMethodNotAllowed, hzte.ErrorTypePublic, http.StatusMethodNotAllowed)
	ErrBodyTooLarge     = hzte.New(rawErrBodyTooLarge, hzte.ErrorTypePublic, http.StatusRequestEntityTooLarge)
)

func NewUnsupportedContentType(contentType string) *hzte.Error {
	return hzte.New(
		fmt.Errorf("unsupported Content-Type: %s. Expected application/json", contentType),
		hzte.ErrorTypePrivate, contentType)
}

func NewInvalidJSON(err error) *hzte.Error {
	return hzte.New(fmt.Errorf("invalid JSON in request body: %w", err), hzte.ErrorTypePrivate, nil)
}

func NewUpstreamFailure(err error) *hzte.Error {
	return hzte.New(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err), hzte.ErrorTypePrivate, nil)
}

func NewInternal(err error) *hzte.Error {
	return hzte.New(err, hzte.ErrorTypePrivate, nil)
}

// StatusCode 返回错误对应的 HTTP 状态码
func StatusCode(err error) int {
	var he *hzte.Error
	if errors.As(err, &he) && he.IsType(hzte.ErrorTypePublic) {
		if code, ok := he.Meta.(int); ok {
			return code
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Message 返回给客户端的错误描述
func Message(err error) string {
	var he *hzte.Error
	if errors.As(err, &he) && he.IsType(hzte.ErrorTypePublic) {
		return he.Err.Error()
	}
	return internalPrefix + err.Error()
}

// Render 两种传输层共用的错误响应
func Render(err error) (int, map[string]interface{}) {
	return StatusCode(err), map[string]interface{}{"error": Message(err)}
}

// IsClientError 是否为调用方造成的错误
func IsClientError(err error) bool {
	return StatusCode(err) < http.StatusInternalServerError
}
