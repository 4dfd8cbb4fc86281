package orderControllers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kimthedrew/legit-collections/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Feed pushes newly placed orders to connected admin dashboards.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  zerolog.Logger
}

func NewFeed(logger zerolog.Logger) *Feed {
	return &Feed{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger.With().Str("component", "order_feed").Logger(),
	}
}

// Handler upgrades the connection and keeps it registered until the
// client goes away. Incoming messages are ignored.
func (f *Feed) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		f.mu.Lock()
		f.clients[conn] = true
		f.mu.Unlock()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.mu.Lock()
				delete(f.clients, conn)
				f.mu.Unlock()
				break
			}
		}
	}
}

// BroadcastOrder fans an order out to every connected client. Dead
// connections are dropped on write failure.
func (f *Feed) BroadcastOrder(order models.Order) {
	data, err := json.Marshal(order)
	if err != nil {
		f.logger.Error().Err(err).Msg("marshal order for broadcast")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(f.clients, client)
		}
	}
}
