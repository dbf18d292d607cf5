package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/syncroom/internal/controller"
	"github.com/sharetube/syncroom/internal/repository/directory/inmemory"
	"github.com/sharetube/syncroom/internal/repository/directory/redis"
	"github.com/sharetube/syncroom/internal/service/manager"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/ctxlogger"
	"github.com/sharetube/syncroom/pkg/redisclient"
	"github.com/sharetube/syncroom/pkg/validator"
)

const (
	directoryExpire = 24 * time.Hour
	shutdownTimeout = 30 * time.Second
)

type AppConfig struct {
	ListenOn      string        `json:"listen_on" validate:"required,hostname_port"`
	LogLevel      string        `json:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	TickInterval  time.Duration `json:"tick_interval" validate:"gt=0"`
	GracePeriod   time.Duration `json:"grace_period" validate:"gt=0"`
	UpdateBuffer  int           `json:"update_buffer" validate:"min=1"`
	RedisAddr     string        `json:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	errs, ok := validator.NewValidator().Validate(cfg)
	if !ok {
		return validator.Error(errs)
	}

	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains connections and stops every room.
func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	managerCfg := &manager.Config{
		Clock:       clock.New(),
		GracePeriod: cfg.GracePeriod,
		Room: room.Config{
			TickInterval: cfg.TickInterval,
			UpdateBuffer: cfg.UpdateBuffer,
		},
		Logger: logger,
	}

	if cfg.RedisAddr != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		managerCfg.Directory = redis.NewRepo(rc, directoryExpire, logger)
	} else {
		managerCfg.Directory = inmemory.NewRepo(logger)
	}

	managerCtx, stopManager := context.WithCancel(context.WithoutCancel(ctx))
	defer stopManager()
	roomManager := manager.New(managerCtx, managerCfg)

	server := &http.Server{
		Handler: controller.NewController(roomManager, logger).GetMux(),
	}

	ln, err := net.Listen("tcp", cfg.ListenOn)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server", "address", ln.Addr().String())
		serveErr <- server.Serve(ln)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	select {
	case err := <-serveErr:
		stopManager()
		<-roomManager.Done()
		return err
	case s := <-sig:
		logger.Info("received signal", "signal", s.String())
	case <-ctx.Done():
	}

	// graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		server.Close()
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	stopManager()
	select {
	case <-roomManager.Done():
	case <-shutdownCtx.Done():
		return fmt.Errorf("rooms did not stop: %w", shutdownCtx.Err())
	}

	logger.Info("server stopped")

	return nil
}
