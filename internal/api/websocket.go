package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rawblock/ra-engine/pkg/models"
)

// Streaming of search progress to dashboard clients. The hub is
// push-only: subscribers are read just enough to notice disconnects.

const hubWriteDeadline = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for local dashboard
	},
}

// Hub fans broadcast payloads out to every subscribed websocket client.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
	events      chan []byte
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*websocket.Conn]struct{}),
		events:      make(chan []byte, 256),
	}
}

// Run drains the event channel and writes each payload to every
// subscriber, dropping clients whose writes fail or stall past the
// deadline.
func (h *Hub) Run() {
	for payload := range h.events {
		h.mu.Lock()
		for conn := range h.subscribers {
			_ = conn.SetWriteDeadline(time.Now().Add(hubWriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("[Hub] dropping slow subscriber: %v", err)
				conn.Close()
				delete(h.subscribers, conn)
			}
		}
		h.mu.Unlock()
	}
}

// SubscriberCount reports the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Subscribe upgrades the request and registers the client for progress
// events until it disconnects.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Hub] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.subscribers[conn] = struct{}{}
	total := len(h.subscribers)
	h.mu.Unlock()
	log.Printf("[Hub] subscriber connected (%d total)", total)

	// reader loop exists only to observe the close handshake
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.subscribers, conn)
			total := len(h.subscribers)
			h.mu.Unlock()
			conn.Close()
			log.Printf("[Hub] subscriber disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Hub] subscriber read error: %v", err)
				}
				return
			}
		}
	}()
}

// Broadcast queues a raw JSON payload for every subscriber.
func (h *Hub) Broadcast(data []byte) {
	h.events <- data
}

// BroadcastProgress pushes a search progress event to every subscriber.
// Wired as the SearchRunner's event callback.
func BroadcastProgress(wsHub *Hub) func(models.ProgressEvent) {
	return func(ev models.ProgressEvent) {
		payload := gin.H{
			"type":  "search_progress",
			"event": ev,
		}
		data, _ := json.Marshal(payload)
		wsHub.Broadcast(data)
		if ev.Kind == models.ProgressSearchComplete {
			log.Printf("[Search] run %s complete: best %s (%s=%.4f, %d models)",
				ev.RunID, ev.BestModelName, ev.StatisticName, ev.BestStatistic, ev.ModelsEvaluated)
		}
	}
}
