package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"location-relay/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errListen = errors.New("listen failed")

func TestRunHandlesSignal(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	listenCalled := make(chan struct{}, 1)
	listen := func(_ *fiber.App, _ string) error {
		listenCalled <- struct{}{}
		return nil
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), cfg, zap.NewNop(), nil, signals, listen); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	select {
	case <-listenCalled:
	case <-time.After(time.Second):
		t.Fatalf("expected listen to be called")
	}
}

func TestRunContextCancel(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, cfg, nil, nil, signals, func(_ *fiber.App, _ string) error { return nil }); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunListenError(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	err := Run(context.Background(), cfg, nil, nil, signals, func(_ *fiber.App, _ string) error {
		return errListen
	})
	if !errors.Is(err, errListen) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunDefaultListen(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	oldListen := defaultListen
	defaultListen = func(_ *fiber.App, _ string) error { return nil }
	defer func() { defaultListen = oldListen }()

	go func() {
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), cfg, nil, nil, signals, nil); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunListenReturnsNil(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	if err := Run(context.Background(), cfg, nil, nil, signals, func(_ *fiber.App, _ string) error {
		return nil
	}); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRealMainExitsOnRunError(t *testing.T) {
	calledNotify := false
	calledRun := false
	exitCode := -1
	deps := mainDeps{
		loadConfig:   func() (config.Config, error) { return config.Config{ServerPort: ":0"}, nil },
		newLogger:    func(config.Config) (*zap.Logger, error) { return zap.NewNop(), nil },
		connectRedis: func(config.Config) *redis.Client { return nil },
		notify: func(ch chan<- os.Signal, _ ...os.Signal) {
			calledNotify = true
		},
		run: func(context.Context, config.Config, *zap.Logger, *redis.Client, <-chan os.Signal, ListenFunc) error {
			calledRun = true
			return errListen
		},
		exit: func(code int) { exitCode = code },
	}

	realMain(deps)
	if !calledNotify {
		t.Fatalf("expected notify to be called")
	}
	if !calledRun {
		t.Fatalf("expected run to be called")
	}
	if exitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCode)
	}
}

func TestRealMainCleanExit(t *testing.T) {
	exited := false
	deps := mainDeps{
		loadConfig:   func() (config.Config, error) { return config.Config{ServerPort: ":0"}, nil },
		newLogger:    func(config.Config) (*zap.Logger, error) { return nil, errListen },
		connectRedis: func(config.Config) *redis.Client { return nil },
		notify:       func(chan<- os.Signal, ...os.Signal) {},
		run: func(_ context.Context, _ config.Config, log *zap.Logger, _ *redis.Client, _ <-chan os.Signal, _ ListenFunc) error {
			if log == nil {
				t.Errorf("expected fallback logger")
			}
			return nil
		},
		exit: func(int) { exited = true },
	}

	realMain(deps)
	if exited {
		t.Fatalf("did not expect exit on clean shutdown")
	}
}

func TestRealMainExitsOnConfigError(t *testing.T) {
	calledRun := false
	exitCode := -1
	deps := mainDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("failed to decode config")
		},
		newLogger:    func(config.Config) (*zap.Logger, error) { return zap.NewNop(), nil },
		connectRedis: func(config.Config) *redis.Client { return nil },
		notify:       func(chan<- os.Signal, ...os.Signal) {},
		run: func(context.Context, config.Config, *zap.Logger, *redis.Client, <-chan os.Signal, ListenFunc) error {
			calledRun = true
			return nil
		},
		exit: func(code int) { exitCode = code },
	}

	realMain(deps)
	if exitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCode)
	}
	if calledRun {
		t.Fatalf("did not expect run after a config error")
	}
}

func TestDefaultDeps(t *testing.T) {
	deps := defaultDeps()
	if deps.loadConfig == nil || deps.newLogger == nil || deps.connectRedis == nil || deps.notify == nil || deps.run == nil || deps.exit == nil {
		t.Fatalf("expected default deps to be set")
	}
}

func TestNewLoggerUsesConfig(t *testing.T) {
	log, err := newLogger(config.Config{AppEnv: "production", LogLevel: "warn"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected info to be disabled at warn level")
	}

	if _, err := newLogger(config.Config{LogLevel: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestMainUsesOverrides(t *testing.T) {
	oldProvider := mainDepsProvider
	oldRunner := mainRunner
	defer func() {
		mainDepsProvider = oldProvider
		mainRunner = oldRunner
	}()

	called := false
	mainDepsProvider = func() mainDeps { return mainDeps{} }
	mainRunner = func(mainDeps) { called = true }

	main()
	if !called {
		t.Fatalf("expected main runner to be called")
	}
}

func TestRunClosesResources(t *testing.T) {
	cfg := config.Config{ServerPort: ":0", ShutdownTimeout: time.Second}
	signals := make(chan os.Signal, 1)

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})

	listen := func(_ *fiber.App, _ string) error {
		signals <- syscall.SIGINT
		return nil
	}

	if err := Run(context.Background(), cfg, nil, client, signals, listen); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if err := client.Ping(context.Background()).Err(); err == nil {
		t.Fatalf("expected redis client to be closed")
	}
}

func TestRunShutdownError(t *testing.T) {
	cfg := config.Config{ServerPort: ":0"}
	signals := make(chan os.Signal, 1)

	oldShutdown := shutdownFn
	shutdownFn = func(_ *fiber.App, _ context.Context) error { return errListen }
	defer func() { shutdownFn = oldShutdown }()

	go func() {
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), cfg, nil, nil, signals, func(_ *fiber.App, _ string) error { return nil }); !errors.Is(err, errListen) {
		t.Fatalf("expected shutdown error, got %v", err)
	}
}
