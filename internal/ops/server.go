package ops

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// Server exposes liveness and metrics endpoints while a long-running
// command (typically the ratings sweep) is in flight.
type Server struct {
	app  *fiber.App
	addr string
}

func NewServer(addr string) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	return &Server{app: app, addr: addr}
}

// Start listens in a goroutine. Listen errors are logged, not fatal: the
// pipeline run matters more than the ops surface.
func (s *Server) Start() {
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			logger.Error("ops server stopped", zap.String("addr", s.addr), zap.Error(err))
		}
	}()
	logger.Info("ops server listening", zap.String("addr", s.addr))
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
