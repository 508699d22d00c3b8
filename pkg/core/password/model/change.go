package model

// ChangeRequest 浏览器端提交的改密请求
type ChangeRequest struct {
	Username        string `json:"username" validate:"required"`
	CurrentPassword string `json:"cpassword" validate:"required"`
	NewPassword     string `json:"npassword" validate:"required"`
	APIKey          string `json:"api_key" validate:"required"`
}

// Payload 转发给上游的请求体，API key 只走请求头
func (r ChangeRequest) Payload() UpstreamPayload {
	return UpstreamPayload{
		Username:        r.Username,
		CurrentPassword: r.CurrentPassword,
		NewPassword:     r.NewPassword,
	}
}

type UpstreamPayload struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"cpassword"`
	NewPassword     string `json:"npassword"`
}

// Result 上游返回结果，Body 总是合法的 JSON
type Result struct {
	StatusCode int
	Body       []byte
}

// NonJSONBody 上游返回非 JSON 内容时的替代响应
type NonJSONBody struct {
	Error     string `json:"error"`
	RawStatus int    `json:"raw_status"`
}
