package server

import (
	"errors"
	"time"

	"location-relay/internal/config"
	"location-relay/internal/metrics"
	"location-relay/internal/relay"
	"location-relay/internal/stream"
	"location-relay/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Redis    *redis.Client
	Log      *zap.Logger
	Registry *prometheus.Registry
	Relay    *relay.Service
	Gateway  *stream.Gateway
}

func NewServer(cfg config.Config, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          newErrorHandler(log),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	origins := cfg.CORSOrigin
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "*",
	}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := relay.NewService(log.Named("relay"), m)
	hub := stream.NewHub(redisClient, cfg.SendBuffer, log.Named("stream"), m)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Redis:    redisClient,
		Log:      log,
		Registry: reg,
		Relay:    svc,
		Gateway:  stream.NewGateway(svc, hub, cfg.PongWait, log.Named("gateway"), m),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		h := s.Relay.Health()
		return c.JSON(fiber.Map{
			"status":            "ok",
			"timestamp":         time.Now().UTC().Format(isoMillis),
			"activeConnections": h.ActiveConnections,
			"activeSessions":    h.ActiveSessions,
		})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	tracking.RegisterRoutes(s.App, s.Relay)
	stream.RegisterRoutes(s.App, s.Gateway)
}

// newErrorHandler renders errors as {"error": message}. Errors that are not
// *fiber.Error are logged and reported to the caller generically.
func newErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fiber.ErrInternalServerError.Message})
	}
}
