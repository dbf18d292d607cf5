package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		ListenOn:     "127.0.0.1:8080",
		LogLevel:     "info",
		TickInterval: time.Second,
		GracePeriod:  5 * time.Minute,
		UpdateBuffer: 128,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(cfg *AppConfig) {},
		},
		{
			name:    "missing listen address",
			mutate:  func(cfg *AppConfig) { cfg.ListenOn = "" },
			wantErr: "listen_on is required",
		},
		{
			name:    "listen address without port",
			mutate:  func(cfg *AppConfig) { cfg.ListenOn = "localhost" },
			wantErr: "listen_on must be a host:port address",
		},
		{
			name:    "unknown log level",
			mutate:  func(cfg *AppConfig) { cfg.LogLevel = "verbose" },
			wantErr: "log_level must be one of",
		},
		{
			name:    "zero tick interval",
			mutate:  func(cfg *AppConfig) { cfg.TickInterval = 0 },
			wantErr: "tick_interval must be greater than 0",
		},
		{
			name:    "zero grace period",
			mutate:  func(cfg *AppConfig) { cfg.GracePeriod = 0 },
			wantErr: "grace_period must be greater than 0",
		},
		{
			name:    "empty update buffer",
			mutate:  func(cfg *AppConfig) { cfg.UpdateBuffer = 0 },
			wantErr: "update_buffer must be at least 1",
		},
		{
			name:    "bad redis address",
			mutate:  func(cfg *AppConfig) { cfg.RedisAddr = "redis" },
			wantErr: "redis_addr must be a host:port address",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizesLogLevel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

func startApp(t *testing.T, cfg *AppConfig) (cancel func() error) {
	t.Helper()

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.ListenOn + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	return func() error {
		stop()
		select {
		case err := <-errCh:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("app did not stop")
			return nil
		}
	}
}

func readTick(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var update struct {
			Player map[string]json.RawMessage `json:"Player"`
		}
		require.NoError(t, json.Unmarshal(data, &update))
		if _, ok := update.Player["Tick"]; ok {
			return
		}
	}
}

func TestRunServesRooms(t *testing.T) {
	cfg := validConfig()
	cfg.ListenOn = freeAddr(t)
	cfg.TickInterval = 20 * time.Millisecond
	stop := startApp(t, cfg)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+cfg.ListenOn+"/join/movie-night", nil)
	require.NoError(t, err)
	defer conn.Close()

	readTick(t, conn)

	resp, err := http.Get("http://" + cfg.ListenOn + "/rooms/movie-night")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info struct {
		Name    string `json:"name"`
		Members int    `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "movie-night", info.Name)
	assert.Equal(t, 1, info.Members)

	require.NoError(t, stop())

	// the room was stopped, so the member's connection ends
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestRunMirrorsRoomsToRedis(t *testing.T) {
	s := miniredis.RunT(t)

	cfg := validConfig()
	cfg.ListenOn = freeAddr(t)
	cfg.TickInterval = 20 * time.Millisecond
	cfg.RedisAddr = s.Addr()
	stop := startApp(t, cfg)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+cfg.ListenOn+"/join/lobby", nil)
	require.NoError(t, err)
	defer conn.Close()

	readTick(t, conn)

	assert.True(t, s.Exists("room:lobby"))
	members, err := s.SMembers("rooms")
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby"}, members)

	require.NoError(t, stop())
}

func TestRunFailsOnUnreachableRedis(t *testing.T) {
	cfg := validConfig()
	cfg.ListenOn = freeAddr(t)
	cfg.RedisAddr = freeAddr(t)

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create redis client")
}
