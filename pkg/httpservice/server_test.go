package httpservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/csvkit/pkg/logging"
)

func TestServer_ShutdownStopsBackgroundWorkers(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:         logging.NewNopLogger(),
		RateLimitRPS:   5,
		RateLimitBurst: 5,
	})
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case <-srv.done:
	default:
		t.Fatal("done channel still open after shutdown")
	}

	assert.NotPanics(t, func() {
		_ = srv.Shutdown(context.Background())
	})
}

func TestNewServer_RequiresLogger(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
