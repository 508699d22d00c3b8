package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultUpstreamURL, cfg.Proxy.Upstream.URL)
	assert.Equal(t, 10*time.Second, cfg.Proxy.Upstream.Timeout.Std())
	assert.Equal(t, "/api/proxy", cfg.Proxy.Path)
	assert.True(t, cfg.Middleware.CORS.AllowsAnyOrigin())
	assert.Equal(t, 24*time.Hour, cfg.Middleware.CORS.MaxAge.Std())
	assert.False(t, cfg.Audit.Enabled)
	assert.False(t, cfg.IsProd())
}

func TestDefaultReturnsCopy(t *testing.T) {
	a := Default()
	a.Proxy.Path = "/changed"

	assert.Equal(t, "/api/proxy", Default().Proxy.Path)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("APP_ENV", "production")
	t.Setenv("PROXY_PATH", "change-password")
	t.Setenv("UPSTREAM_URL", "http://127.0.0.1:9000/change")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("MAX_BODY_SIZE", "1024")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUDIT_ENABLED", "yes")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PATH", ":memory:")

	cfg := Load()

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "/change-password", cfg.Proxy.Path)
	assert.Equal(t, "http://127.0.0.1:9000/change", cfg.Proxy.Upstream.URL)
	assert.Equal(t, 3*time.Second, cfg.Proxy.Upstream.Timeout.Std())
	assert.EqualValues(t, 1024, cfg.Middleware.Security.MaxBodySize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Middleware.CORS.AllowOrigins)
	assert.False(t, cfg.Middleware.CORS.AllowsAnyOrigin())
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "sqlite", cfg.Audit.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Audit.Database.DSN())
}

func TestLoadInvalidDurationKeepsDefault(t *testing.T) {
	t.Setenv("APP_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.Proxy.Upstream.Timeout.Std())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server":{"address":":9090"},"proxy":{"path":"/pw","upstream":{"url":"http://upstream.local/change"}},"metrics":{"enabled":false}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("APP_CONFIG", path)

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "/pw", cfg.Proxy.Path)
	assert.Equal(t, "http://upstream.local/change", cfg.Proxy.Upstream.URL)
	assert.False(t, cfg.Metrics.Enabled)
	// 文件里没出现的字段保留默认值
	assert.Equal(t, 10*time.Second, cfg.Proxy.Upstream.Timeout.Std())
}

func TestDSN(t *testing.T) {
	d := Default().Audit.Database
	assert.Equal(t, "root:root@tcp(localhost:3306)/password_proxy?charset=utf8mb4&parseTime=True&loc=Local", d.DSN())

	d.UseUnixSock = true
	d.Host = "/var/run/mysqld/mysqld.sock"
	assert.Equal(t, "root:root@unix(/var/run/mysqld/mysqld.sock)/password_proxy?charset=utf8mb4&parseTime=True&loc=Local", d.DSN())
}

func TestInitDBUnsupportedDriver(t *testing.T) {
	cfg := Default()
	cfg.Audit.Database.Driver = "oracle"

	_, err := cfg.InitDB()
	assert.Error(t, err)
}

func TestLoadFromFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"proxy":{"upstream":{"timeout":"2500ms"}},"middleware":{"cors":{"maxAge":"1h"}}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("APP_CONFIG", path)

	cfg := Load()

	assert.Equal(t, 2500*time.Millisecond, cfg.Proxy.Upstream.Timeout.Std())
	assert.Equal(t, time.Hour, cfg.Middleware.CORS.MaxAge.Std())
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"10s"`)))
	assert.Equal(t, 10*time.Second, d.Std())

	// 兼容纳秒整数
	require.NoError(t, d.UnmarshalJSON([]byte(`3000000000`)))
	assert.Equal(t, 3*time.Second, d.Std())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}
