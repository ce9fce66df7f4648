package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"meshview/internal/api/middleware"
	"meshview/internal/api/websocket"
	"meshview/internal/db"
	"meshview/internal/explorer"
	"meshview/internal/metrics"
)

// childrenRequest asks for the children of a node; a nil node means the
// tree root.
type childrenRequest struct {
	Node *explorer.Node `json:"node,omitempty"`
}

// commandRequest invokes a command on an optional node. Arg carries the
// new directory for set-root-dir.
type commandRequest struct {
	Node *explorer.Node `json:"node,omitempty"`
	Arg  string         `json:"arg,omitempty"`
}

// dropRequest copies the listed URIs into the target directory node.
type dropRequest struct {
	Target explorer.Node `json:"target"`
	URIs   []string      `json:"uris"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

// POST /api/v1/tree/children
func (s *Server) handleChildren(c echo.Context) error {
	var req childrenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid node")
	}

	kind := "root"
	if req.Node != nil {
		kind = string(req.Node.Kind)
	} else {
		metrics.RecordRefresh()
	}
	metrics.RecordExpansion(kind)

	children, err := s.provider.GetChildren(c.Request().Context(), req.Node)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if children == nil {
		children = []explorer.Node{}
	}
	return c.JSON(http.StatusOK, children)
}

// POST /api/v1/tree/item
func (s *Server) handleItem(c echo.Context) error {
	var node explorer.Node
	if err := c.Bind(&node); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid node")
	}
	return c.JSON(http.StatusOK, s.provider.GetTreeItem(node))
}

// POST /api/v1/commands/:name
func (s *Server) handleCommand(c echo.Context) error {
	name := c.Param("name")

	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid command request")
	}

	metrics.RecordCommand(name)
	if err := s.commands.Run(c.Request().Context(), name, req.Node, req.Arg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /api/v1/drop
//
// Returns 202 immediately; the copies proceed as independent tasks and
// their outcomes arrive as notifications and tree-changed events.
func (s *Server) handleDrop(c echo.Context) error {
	var req dropRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid drop request")
	}

	// The copies outlive this request; don't tie them to its context.
	op, err := s.dragDrop.HandleDrop(context.Background(), req.Target, req.URIs)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]any{"op_id": op.ID})
}

const defaultConnectionLimit = 20

// GET /api/v1/connections?limit=N
func (s *Server) handleConnections(c echo.Context) error {
	limit := defaultConnectionLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	conns := []db.Connection{}
	if s.connections != nil {
		var err error
		conns, err = s.connections.RecentConnections(limit)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if conns == nil {
			conns = []db.Connection{}
		}
	}
	return c.JSON(http.StatusOK, conns)
}

// GET /ws
func (s *Server) handleWS(c echo.Context) error {
	return websocket.ServeWS(s.hub, c, middleware.GetClientID(c))
}
