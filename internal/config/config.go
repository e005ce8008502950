package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	CORSOrigin      string        `mapstructure:"CORS_ORIGIN"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	AppEnv          string        `mapstructure:"APP_ENV"`
	SendBuffer      int           `mapstructure:"WS_SEND_BUFFER"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	PongWait        time.Duration `mapstructure:"WS_PONG_WAIT"`
}

// Load reads configuration from the environment and an optional .env file
// in the working directory. Environment variables win over the file. A
// value that is set but cannot be decoded is an error.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	v.AutomaticEnv()
	_ = v.BindEnv("SERVER_PORT", "SERVER_PORT", "PORT")

	v.SetDefault("SERVER_PORT", ":3000")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("WS_SEND_BUFFER", 64)
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("WS_PONG_WAIT", "60s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ServerPort = normalizeAddr(cfg.ServerPort)
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	return cfg, nil
}

// normalizeAddr turns a bare port such as "3000" into ":3000".
func normalizeAddr(addr string) string {
	if addr == "" {
		return ":3000"
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
