package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"location-relay/internal/config"
	"location-relay/internal/db"
	"location-relay/internal/logger"
	"location-relay/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig   func() (config.Config, error)
	newLogger    func(config.Config) (*zap.Logger, error)
	connectRedis func(config.Config) *redis.Client
	notify       func(chan<- os.Signal, ...os.Signal)
	run          func(context.Context, config.Config, *zap.Logger, *redis.Client, <-chan os.Signal, ListenFunc) error
	exit         func(int)
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:   config.Load,
		newLogger:    newLogger,
		connectRedis: db.ConnectRedis,
		notify:       signal.Notify,
		run:          Run,
		exit:         os.Exit,
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(cfg.IsProduction(), cfg.LogLevel)
}

func realMain(deps mainDeps) {
	cfg, cfgErr := deps.loadConfig()

	log, err := deps.newLogger(cfg)
	if err != nil {
		log = zap.NewExample()
		log.Warn("falling back to default logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		log.Error("invalid configuration", zap.Error(cfgErr))
		_ = log.Sync()
		deps.exit(1)
		return
	}

	rdb := deps.connectRedis(cfg)
	if rdb != nil {
		log.Info("redis mirror enabled", zap.String("addr", cfg.RedisAddr))
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, log, rdb, signals, nil); err != nil {
		log.Error("server exited with error", zap.Error(err))
		_ = log.Sync()
		deps.exit(1)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP and websocket server and waits for a termination
// signal. In-memory state is dropped on return.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	if log == nil {
		log = zap.NewNop()
	}
	srv := server.NewServer(cfg, rdb, log)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	log.Info("location relay listening",
		zap.String("addr", cfg.ServerPort),
		zap.String("websocket", "/ws"),
	)

	select {
	case sig := <-signals:
		log.Info("shutting down gracefully", zap.Any("signal", sig))
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		log.Info("server closed")
	}
	return errors.Join(errs...)
}
