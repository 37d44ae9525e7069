package server

import (
	"context"
	"errors"
	"testing"

	"TrendCast/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdownClosesResourcesInReverseOrder(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	var closed []string
	track := func(name string, err error) Resource {
		return Resource{Name: name, Closer: closerFunc(func() error {
			closed = append(closed, name)
			return err
		})}
	}
	app := New(cfg, nil, nil, nil, nil,
		track("archive", nil),
		track("cache", errors.New("already closed")),
		Resource{Name: "unused"},
		track("producer", nil),
	)

	require.NoError(t, app.Shutdown(context.Background()))
	assert.Equal(t, []string{"producer", "cache", "archive"}, closed)
}

func TestStartAndShutdownWithoutKafka(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.Port = 0
	cfg.Metrics.Enabled = false

	app := New(cfg, nil, nil, nil, nil)
	require.NoError(t, app.Start())
	require.NotNil(t, app.httpServer)
	assert.NotNil(t, app.httpServer.Echo())
	assert.NoError(t, app.Shutdown(context.Background()))
}
