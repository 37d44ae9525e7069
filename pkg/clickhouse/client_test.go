package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithHost("ch.local"),
		WithPort(8123),
		WithDatabase("trendcast"),
		WithCredentials("svc", "secret"),
		WithHTTP(true),
		WithAsyncInsert(true, false),
		WithMaxExecutionTime(30 * time.Second),
	} {
		opt(cfg)
	}

	o := buildOptions(cfg)
	assert.Equal(t, []string{"ch.local:8123"}, o.Addr)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, "trendcast", o.Auth.Database)
	assert.Equal(t, "svc", o.Auth.Username)
	assert.Equal(t, 30, o.Settings["max_execution_time"])
	assert.Equal(t, 1, o.Settings["async_insert"])
	assert.Equal(t, 0, o.Settings["wait_for_async_insert"])
}

func TestBuildOptionsNativeDefaults(t *testing.T) {
	cfg := defaultConfig()
	WithHost("localhost")(cfg)

	o := buildOptions(cfg)
	assert.Equal(t, []string{"localhost:9000"}, o.Addr)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Empty(t, o.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
