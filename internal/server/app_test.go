package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/server/config"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/repomanager"
)

func testAppConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "0123456789abcdef0123456789abcdef"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.MetricsAddr = ""
	c.BcryptCost = 4
	return c
}

func TestNewApp_RejectsWeakSecret(t *testing.T) {
	c := testAppConfig()
	c.SecretKey = "short"

	_, err := NewApp(c)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestNewApp_RejectsBadLogFormat(t *testing.T) {
	c := testAppConfig()
	c.LogFormat = "xml"

	_, err := NewApp(c)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := newApp(testAppConfig(), logging.Nop{}, nil, repomanager.NewMemoryRepositoryManager())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestRun_StopsWhenListenerFails(t *testing.T) {
	c := testAppConfig()
	c.EndpointAddrGRPC = "127.0.0.1:99999"
	app, err := newApp(c, logging.Nop{}, nil, repomanager.NewMemoryRepositoryManager())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running after the gRPC listener failed")
	}
}
