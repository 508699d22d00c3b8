package serverless

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"mail-password-proxy/pkg/bootstrap"
	"mail-password-proxy/pkg/common/config"
	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/core/password/service"
	"mail-password-proxy/pkg/web/model"
)

var (
	initServerless sync.Once
	initErr        error
	defaultHandler http.Handler
	handlerMutex   sync.RWMutex
)

// Handler 函数平台入口，首次调用时从环境变量组装依赖
func Handler(w http.ResponseWriter, r *http.Request) {
	initServerless.Do(func() {
		cfg := config.Load()
		cfg.ApplyLogLevel()

		// 函数实例随时被回收，不持有数据库连接的 cleanup
		comps, _, err := bootstrap.Build(cfg)
		if err != nil {
			initErr = err
			hlog.Errorf("serverless init failed: %v", err)
			return
		}

		handlerMutex.Lock()
		defaultHandler = NewHandler(comps.Proxy, cfg)
		handlerMutex.Unlock()
	})

	handlerMutex.RLock()
	h := defaultHandler
	handlerMutex.RUnlock()

	if initErr != nil || h == nil {
		w.Header().Set(model.HeaderAllowOrigin, "*")
		err := initErr
		if err == nil {
			err = errors.New("handler not initialised")
		}
		writeError(w, err)
		return
	}

	h.ServeHTTP(w, r)
}

// resetHandler 重置全局入口
func resetHandler() {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()

	initServerless = sync.Once{}
	initErr = nil
	defaultHandler = nil
}

type proxyHandler struct {
	svc          *service.ProxyService
	maxBodySize  int64
	allowMethods string
	allowHeaders string
	maxAge       string
}

// NewHandler 用 net/http 暴露同一个 ProxyService；所有路径都视为代理路径
func NewHandler(svc *service.ProxyService, cfg *config.Config) http.Handler {
	cors := cfg.Middleware.CORS
	return &proxyHandler{
		svc:          svc,
		maxBodySize:  cfg.Middleware.Security.MaxBodySize,
		allowMethods: strings.Join(cors.AllowMethods, ", "),
		allowHeaders: strings.Join(cors.AllowHeaders, ", "),
		maxAge:       strconv.FormatInt(int64(cors.MaxAge.Std()/time.Second), 10),
	}
}

func (p *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set(model.HeaderAllowOrigin, "*")
	if r.Method == http.MethodOptions {
		w.Header().Set(model.HeaderAllowMethods, p.allowMethods)
		w.Header().Set(model.HeaderAllowHeaders, p.allowHeaders)
		w.Header().Set(model.HeaderMaxAge, p.maxAge)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, errs.ErrMethodNotAllowed)
		return
	}

	body, err := p.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := p.svc.ChangePassword(r.Context(), service.RequestMeta{
		ContentType: r.Header.Get("Content-Type"),
		ClientIP:    clientIP(r),
	}, body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(result.Body)
}

func (p *proxyHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	reader := io.Reader(r.Body)
	if p.maxBodySize > 0 {
		reader = http.MaxBytesReader(w, r.Body, p.maxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.ErrBodyTooLarge
		}
		return nil, errs.NewInternal(err)
	}
	return body, nil
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := errs.Render(err)
	body, mErr := sonic.Marshal(payload)
	if mErr != nil {
		body = []byte(`{"error":"Internal proxy error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
