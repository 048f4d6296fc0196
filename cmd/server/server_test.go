package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sms-ingress-server/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig(t *testing.T) *config.Config {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.OTP.HashCost = 4
	return cfg
}

// freePort asks the kernel for an unused TCP port
func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestSetupServer(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		srv, err := SetupServer(testServerConfig(t))
		require.NoError(t, err)
		require.NotNil(t, srv)
		assert.Equal(t, "127.0.0.1:8080", srv.Addr)
		assert.Equal(t, 15*time.Second, srv.WriteTimeout)
		assert.NoError(t, srv.Release())
	})

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{
			name:   "invalid port",
			mutate: func(cfg *config.Config) { cfg.Server.Port = -1 },
		},
		{
			name:   "short jwt secret",
			mutate: func(cfg *config.Config) { cfg.JWT.Secret = "short" },
		},
		{
			name:   "unsupported driver",
			mutate: func(cfg *config.Config) { cfg.Database.Driver = "mysql" },
		},
		{
			name:   "unusable database",
			mutate: func(cfg *config.Config) { cfg.Database.DSN = "file:test.db?mode=invalid" },
		},
		{
			name:   "bad redis url",
			mutate: func(cfg *config.Config) { cfg.Redis.URL = "ftp://localhost:6379" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig(t)
			tt.mutate(cfg)

			srv, err := SetupServer(cfg)
			assert.Error(t, err)
			assert.Nil(t, srv)
		})
	}

	t.Run("nil configuration", func(t *testing.T) {
		srv, err := SetupServer(nil)
		assert.Error(t, err)
		assert.Nil(t, srv)
	})
}

func TestServerHealth(t *testing.T) {
	srv, err := SetupServer(testServerConfig(t))
	require.NoError(t, err)
	defer srv.Release()

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, version, response["version"])
	assert.Equal(t, map[string]any{"database": "ok", "redis": "ok"}, response["dependencies"])
}

func TestServerRoutesRequireAuth(t *testing.T) {
	srv, err := SetupServer(testServerConfig(t))
	require.NoError(t, err)
	defer srv.Release()

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/a2p", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartServerWithContext(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.Server.Port = freePort(t)

	srv, err := SetupServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartServerWithContext(ctx, srv)
	}()

	url := fmt.Sprintf("http://%s/health", srv.Addr)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestStartServerWithContext_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testServerConfig(t)
	cfg.Server.Port = l.Addr().(*net.TCPAddr).Port

	srv, err := SetupServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = StartServerWithContext(ctx, srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}
