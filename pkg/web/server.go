// Package web serves Molty's optional HTTP control surface. It mirrors the
// line protocol over REST and streams status events on /ws/status.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/go-molty/pkg/emotions"
	"github.com/teslashibe/go-molty/pkg/hub"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// Controller is the part of the scheduler the HTTP surface drives.
type Controller interface {
	SetEmotion(tag string) error
	SetServos(angle1, angle2 float64) error
	Stop() error
	Snapshot() scheduler.Snapshot
	Library() *emotions.Library
}

// Server is the HTTP control server.
type Server struct {
	app  *fiber.App
	addr string
	ctl  Controller
	hub  *hub.Hub
	log  *slog.Logger
}

// NewServer creates the server. Status events reach websocket clients
// through h; the caller adds h to the controller's emitters and runs it.
func NewServer(addr string, ctl Controller, h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr: addr,
		ctl:  ctl,
		hub:  h,
		log:  logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Molty Motors",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/emotions", s.handleListEmotions)
	api.Post("/emotion/:name", s.handleSetEmotion)
	api.Post("/servos", s.handleSetServos)
	api.Post("/stop", s.handleStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http control surface listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			s.log.Warn("http shutdown", "error", err)
		}
		return nil
	}
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	hub.NewClient(s.hub, conn).Run()
}
