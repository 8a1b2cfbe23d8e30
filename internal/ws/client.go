package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/pkg/logger"
	"github.com/agorachat/agora/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS layer; the upgrade
	// endpoint itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan model.Event
	userID string
}

// Handler upgrades authenticated requests to websocket connections and runs
// the read/write pumps until disconnect.
type Handler struct {
	hub    *Hub
	room   *service.Room
	logger *logger.Logger
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(hub *Hub, room *service.Room, log *logger.Logger) *Handler {
	return &Handler{hub: hub, room: room, logger: log}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan model.Event, sendBuffer),
		userID: userID,
	}
	h.hub.register(c)
	metrics.IncrementWSConnections()

	go h.writePump(c)
	go h.readPump(c)
}

// readPump consumes frames from the client. The only inbound message the
// event surface accepts is sync:request, answered directly on this socket
// with the ephemeral presence snapshot.
func (h *Handler) readPump(c *client) {
	defer func() {
		h.hub.remove(c)
		c.conn.Close()
		metrics.DecrementWSConnections()
		// TTL entries for this user are not cleared here: a client that
		// vanishes mid-typing ages out of the table within one TTL window.
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			h.logger.Warn("malformed websocket frame", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		switch event.Type {
		case model.EventSyncRequest:
			state, err := model.NewEvent(model.EventSyncState, h.room.SyncState())
			if err != nil {
				h.logger.Error("failed to build sync:state", zap.Error(err))
				continue
			}
			h.hub.trySend(c, state)
		default:
			h.logger.Debug("ignoring unexpected event from client",
				zap.String("user_id", c.userID),
				zap.String("event", string(event.Type)),
			)
		}
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (h *Handler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
