package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"camguard/internal/logger"
	"camguard/internal/model"

	"github.com/gorilla/websocket"
)

// broadcastBuffer bounds the alerts waiting for the hub loop.
const broadcastBuffer = 16

const writeTimeout = 5 * time.Second

// IntruderAlert is the message pushed to viewers when a new intruder is recorded.
type IntruderAlert struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Image     string    `json:"image"`
	Timestamp time.Time `json:"timestamp"`
}

// HubService fans alerts out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client. Run must be called at most once.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending alert: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a viewer. After Run has returned the connection is closed
// instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a viewer. It returns immediately once Run
// has returned.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// NotifyIntruder queues an alert. It never blocks; when the queue is full
// the alert is dropped and logged.
func (h *HubService) NotifyIntruder(rec model.IntruderRecord) {
	message, err := json.Marshal(IntruderAlert{
		Type:      "intruder",
		ID:        rec.ID,
		Image:     rec.ImagePath,
		Timestamp: rec.Timestamp,
	})
	if err != nil {
		h.logger.Error("Error encoding alert: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Alert queue full, dropping alert for %s", rec.ImagePath)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
