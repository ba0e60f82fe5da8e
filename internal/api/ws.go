package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
)

const maxWSConnections = 32

// WSManager streams every engine action to connected dashboard clients.
// It implements the notifier's Sink interface.
type WSManager struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
	upgrader    websocket.Upgrader
}

func NewWSManager(logger *logging.Logger) *WSManager {
	return &WSManager{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and keeps the connection registered until the
// client goes away.
func (m *WSManager) Handle(c *gin.Context) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	if !m.add(conn) {
		_ = conn.Close()
		return
	}

	// Drain reads so close frames are processed; we never expect input.
	go func() {
		defer m.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *WSManager) add(conn *websocket.Conn) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.connections) >= maxWSConnections {
		m.logger.Warnf("max websocket connections reached, rejecting client")
		return false
	}
	m.connections[conn] = true
	m.logger.Infof("websocket client connected (total: %d)", len(m.connections))
	return true
}

func (m *WSManager) remove(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.connections[conn]; ok {
		delete(m.connections, conn)
		_ = conn.Close()
		m.logger.Infof("websocket client disconnected (remaining: %d)", len(m.connections))
	}
}

// Record broadcasts one notification record to every connected client.
// Clients whose writes fail are evicted.
func (m *WSManager) Record(_ context.Context, rec models.NotificationRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		m.logger.Errorf("failed to marshal ws record: %v", err)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.logger.Errorf("websocket write failed, dropping client: %v", err)
			delete(m.connections, conn)
			_ = conn.Close()
		}
	}
}
