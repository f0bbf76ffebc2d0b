package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/gin-gonic/gin"
)

const sseHeartbeatInterval = 30 * time.Second

// SSEHandler handles SSE connections
type SSEHandler struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: sseHeartbeatInterval}
}

// Stream handles the SSE endpoint
// GET /api/v1/sse/events?token=xxx&product_id=yyy
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := GetUserID(c)
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())

	client := &sse.Client{
		ID:        clientID,
		UserID:    userID,
		ProductID: c.Query("product_id"),
		Events:    make(chan sse.Event, 64),
	}

	h.hub.Register(client)
	metrics.SSEClients.Set(float64(h.hub.ClientCount()))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	hello, _ := json.Marshal(gin.H{"client_id": clientID, "product_id": client.ProductID})
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", sse.EventConnected, hello)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.hub.Unregister(clientID)
			metrics.SSEClients.Set(float64(h.hub.ClientCount()))
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.EventType, event.Data)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
