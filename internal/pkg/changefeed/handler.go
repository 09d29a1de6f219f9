package changefeed

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Tables clients may subscribe to
const (
	TableComponents = "components"
	TableRequests   = "requests"
)

// Handler upgrades HTTP connections into change feed subscriptions
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new change feed handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection godoc
// @Summary Subscribe to committed table changes
// @Description Upgrades the HTTP connection to a WebSocket that streams committed INSERT/UPDATE/DELETE events for one table
// @Tags changefeed
// @Param table query string true "Table to watch (components or requests)"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} gin.H "Unknown table"
// @Router /ws/changes [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	table := c.Query("table")
	if table != TableComponents && table != TableRequests {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "table must be one of: components, requests",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade change feed connection")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, 32),
		table:  table,
		logger: h.logger,
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
