package audit

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"golang.org/x/crypto/blake2b"

	"mail-password-proxy/pkg/core/audit/model"
	"mail-password-proxy/pkg/core/audit/repository/dao"
)

const (
	fingerprintLen = 16
	burstWindow    = time.Hour
	burstThreshold = 5
)

// Entry 服务层交给审计的一次尝试摘要
type Entry struct {
	Username       string
	APIKey         string
	Outcome        string
	UpstreamStatus int
	Latency        time.Duration
	ClientIP       string
}

// Sink 审计写入端，实现方不得让失败影响代理响应
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder 把 Entry 落库，出错只记日志
type Recorder struct {
	repo dao.AttemptRepository
	key  []byte
	now  func() time.Time
}

func NewRecorder(repo dao.AttemptRepository, fingerprintKey string) *Recorder {
	return &Recorder{repo: repo, key: []byte(fingerprintKey), now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	attempt := model.Attempt{
		Username:       entry.Username,
		KeyFingerprint: Fingerprint(r.key, entry.APIKey),
		Outcome:        entry.Outcome,
		UpstreamStatus: entry.UpstreamStatus,
		LatencyMS:      entry.Latency.Milliseconds(),
		ClientIP:       entry.ClientIP,
	}

	if err := r.repo.Record(ctx, attempt); err != nil {
		hlog.CtxErrorf(ctx, "[AUDIT] record failed user=%s key=%s: %v",
			entry.Username, attempt.KeyFingerprint, err)
		return
	}

	if entry.Username == "" {
		return
	}
	n, err := r.repo.CountSince(ctx, entry.Username, r.now().Add(-burstWindow))
	if err != nil {
		hlog.CtxWarnf(ctx, "[AUDIT] count failed user=%s: %v", entry.Username, err)
		return
	}
	if n > burstThreshold {
		hlog.CtxWarnf(ctx, "[AUDIT] %d password change attempts in the last %s user=%s",
			n, burstWindow, entry.Username)
	}
}

// Fingerprint 计算 API key 的带密钥 BLAKE2b 指纹，空 key 返回空串
func Fingerprint(key []byte, apiKey string) string {
	if apiKey == "" {
		return ""
	}
	// blake2b 密钥最长 64 字节
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	h.Write([]byte(apiKey))
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}
