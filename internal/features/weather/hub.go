package weather

import (
	"sync"
	"time"

	"tafe-weather-api/internal/metrics"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
)

// LiveEvent is pushed to feed clients for every batch of stored readings.
type LiveEvent struct {
	Type     string    `json:"type"`
	Count    int       `json:"count"`
	Readings []Weather `json:"readings"`
}

type liveClient struct {
	send   chan LiveEvent
	device string
}

// Hub fans stored readings out to websocket clients. Clients may subscribe
// to one device with ?deviceName=. A client that cannot keep up loses events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*liveClient]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[*liveClient]struct{}), logger: logger}
}

// NewPublisher exposes the hub to the service.
func NewPublisher(h *Hub) Publisher {
	return h
}

func (h *Hub) Publish(readings []Weather) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients {
		batch := readings
		if cl.device != "" {
			batch = filterDevice(readings, cl.device)
			if len(batch) == 0 {
				continue
			}
		}
		select {
		case cl.send <- LiveEvent{Type: "created", Count: len(batch), Readings: batch}:
		default:
			h.logger.Debug("live feed client is slow, dropping event", zap.String("device", cl.device))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(device string) *liveClient {
	cl := &liveClient{send: make(chan LiveEvent, clientBuffer), device: device}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.LiveFeedClients.Inc()
	return cl
}

func (h *Hub) unregister(cl *liveClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
		metrics.LiveFeedClients.Dec()
	}
	h.mu.Unlock()
}

// HandleLive serves one websocket client until it disconnects.
func (h *Hub) HandleLive(c *websocket.Conn) {
	cl := h.register(c.Query("deviceName"))
	defer h.unregister(cl)

	// reader: only watches for close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-cl.send:
			if !ok {
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(ev); err != nil {
				h.logger.Debug("live feed write failed", zap.Error(err))
				return
			}
		}
	}
}

func filterDevice(readings []Weather, device string) []Weather {
	out := make([]Weather, 0, len(readings))
	for _, w := range readings {
		if w.DeviceName == device {
			out = append(out, w)
		}
	}
	return out
}
