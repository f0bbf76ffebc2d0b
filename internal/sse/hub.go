package sse

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventFootprintUpdate = "footprint_update"
	EventConnected       = "connected"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	ProductID string `json:"product_id,omitempty"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client. An empty ProductID receives every product's events.
type Client struct {
	ID        string
	UserID    string
	ProductID string
	Events    chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client subscribed to its product. Slow clients drop the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.ProductID != "" && event.ProductID != "" && client.ProductID != event.ProductID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// FootprintUpdate 重算完成后推送的数据
type FootprintUpdate struct {
	ProductID           string    `json:"product_id"`
	TotalCo2eKg         float64   `json:"total_co2e_kg"`
	Status              string    `json:"status"`
	AuditReadinessScore float64   `json:"audit_readiness_score"`
	MissingCount        int       `json:"missing_count"`
	CalculatedAt        time.Time `json:"calculated_at"`
}

// PublishFootprintUpdate 推送产品碳足迹更新
func (h *Hub) PublishFootprintUpdate(u FootprintUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("Failed to encode footprint update", zap.Error(err))
		return
	}
	h.Broadcast(Event{
		EventType: EventFootprintUpdate,
		ProductID: u.ProductID,
		Data:      string(data),
	})
}
