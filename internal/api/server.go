// Package api exposes the explorer to the IDE frontend over a local
// HTTP and WebSocket bridge.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"meshview/internal/api/middleware"
	"meshview/internal/api/websocket"
	"meshview/internal/auth"
	"meshview/internal/db"
	"meshview/internal/explorer"
	"meshview/internal/metrics"
)

// ConnectionStore reads the recorded terminal and window opens.
type ConnectionStore interface {
	RecentConnections(limit int) ([]db.Connection, error)
}

// Server is the bridge HTTP server.
type Server struct {
	echo        *echo.Echo
	provider    *explorer.Provider
	commands    *explorer.Commands
	dragDrop    *explorer.DragDrop
	hub         *websocket.Hub
	connections ConnectionStore
	tokenConfig *auth.TokenConfig
	addr        string
}

// Config holds server wiring.
type Config struct {
	Addr        string
	Provider    *explorer.Provider
	Commands    *explorer.Commands
	DragDrop    *explorer.DragDrop
	Hub         *websocket.Hub
	Connections ConnectionStore
	TokenConfig *auth.TokenConfig
}

// NewServer creates the bridge server and registers all routes.
func NewServer(cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	s := &Server{
		echo:        e,
		provider:    cfg.Provider,
		commands:    cfg.Commands,
		dragDrop:    cfg.DragDrop,
		hub:         cfg.Hub,
		connections: cfg.Connections,
		tokenConfig: cfg.TokenConfig,
		addr:        cfg.Addr,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	authed := e.Group("", middleware.TokenAuth(cfg.TokenConfig))
	authed.GET("/ws", s.handleWS)

	v1 := authed.Group("/api/v1")
	v1.POST("/tree/children", s.handleChildren)
	v1.POST("/tree/item", s.handleItem)
	v1.POST("/commands/:name", s.handleCommand)
	v1.POST("/drop", s.handleDrop)
	v1.GET("/connections", s.handleConnections)

	// Change signals flow from the provider to every frontend.
	go s.forwardSignals()

	return s
}

// forwardSignals relays provider change signals and title updates to
// the hub.
func (s *Server) forwardSignals() {
	s.provider.SetTitleFunc(func(tailnet string) {
		s.hub.Send("title-changed", map[string]any{"tailnet": tailnet})
	})
	for sig := range s.provider.Subscribe() {
		payload := map[string]any{"all": sig.All}
		if len(sig.Nodes) > 0 {
			payload["nodes"] = sig.Nodes
		}
		s.hub.Send("tree-changed", payload)
	}
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
