package realtime

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Identifier resolves the handshake credential into an identity.
type Identifier interface {
	Identify(token, connectionID string) (models.Identity, error)
}

// SocketHandler upgrades websocket connections and dispatches their
// inbound events into the coordination engine.
type SocketHandler struct {
	hub      *Hub
	registry *Registry
	verifier Identifier
	logger   *zap.Logger
}

func NewSocketHandler(hub *Hub, registry *Registry, verifier Identifier, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{hub: hub, registry: registry, verifier: verifier, logger: logger}
}

// inboundEvent is the envelope clients send.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Room     string `json:"room"`
	UserName string `json:"userName"`
	AsHost   bool   `json:"asHost"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type chatPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type tickPayload struct {
	Room    string `json:"room"`
	Seconds int    `json:"seconds"`
}

type resetPayload struct {
	Room    string `json:"room"`
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

// Handle authenticates and upgrades an incoming connection, then runs
// its read loop until disconnect.
func (h *SocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	connectionID := uuid.New().String()
	identity, err := h.verifier.Identify(token, connectionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication error: Token required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(connectionID, identity, ws)
	h.hub.Register(conn)
	go conn.writePump(h.logger)

	h.logger.Info("connection established",
		zap.String("connection", connectionID),
		zap.Bool("authenticated", identity.IsAuthenticated))

	h.readPump(conn)
}

func (h *SocketHandler) readPump(conn *Conn) {
	defer h.disconnect(conn)

	for {
		var event inboundEvent
		if err := conn.ws.ReadJSON(&event); err != nil {
			return
		}
		h.dispatch(conn, event)
	}
}

// disconnect runs the leave path for every room the connection was
// attached to, using the hub's own record of its memberships.
func (h *SocketHandler) disconnect(conn *Conn) {
	joined := h.hub.Unregister(conn)
	conn.ws.Close()

	for _, name := range joined {
		room, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		if room.Leave(conn.Identity) {
			h.registry.RemoveIfEmpty(name)
			h.hub.BroadcastAll(models.Event{
				Type:    models.EventRoomListChanged,
				Payload: models.RoomListChangedPayload{Room: name},
			})
		}
	}

	h.logger.Info("connection closed", zap.String("connection", conn.ID))
}

func (h *SocketHandler) dispatch(conn *Conn, event inboundEvent) {
	switch event.Type {
	case models.EventJoin:
		var p joinPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		room, err := h.registry.EnsureRoom(p.Room)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.hub.Join(conn, p.Room)
		room.Join(conn.Identity, p.UserName, p.AsHost)

	case models.EventLeave:
		var p roomPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		room, ok := h.registry.Get(p.Room)
		h.hub.Leave(conn, p.Room)
		if !ok {
			return
		}
		if room.Leave(conn.Identity) {
			h.registry.RemoveIfEmpty(p.Room)
			h.hub.BroadcastAll(models.Event{
				Type:    models.EventRoomListChanged,
				Payload: models.RoomListChangedPayload{Room: p.Room},
			})
		}

	case models.EventChatSend:
		var p chatPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		if room, ok := h.registry.Get(p.Room); ok {
			room.SendChat(conn.Identity, p.Text)
		}

	case models.EventTimerStart:
		h.withRoom(event.Payload, func(room *Room) { room.TimerStart(conn.Identity) })

	case models.EventTimerPause:
		h.withRoom(event.Payload, func(room *Room) { room.TimerPause(conn.Identity) })

	case models.EventTimerTick:
		var p tickPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		if room, ok := h.registry.Get(p.Room); ok {
			room.TimerTick(conn.Identity, p.Seconds)
		}

	case models.EventTimerReset:
		var p resetPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		if room, ok := h.registry.Get(p.Room); ok {
			room.TimerReset(conn.Identity, p.Seconds, p.Label)
		}

	case models.EventRequestPresence:
		h.withRoom(event.Payload, func(room *Room) { room.SendPresence(conn.ID) })

	case models.EventRequestTimer:
		h.withRoom(event.Payload, func(room *Room) { room.SendTimer(conn.ID) })

	case models.EventRequestChatHistory:
		h.withRoom(event.Payload, func(room *Room) { room.SendHistory(conn.ID) })

	case models.EventTerminate:
		var p roomPayload
		if json.Unmarshal(event.Payload, &p) != nil || p.Room == "" {
			return
		}
		if err := h.registry.Terminate(p.Room, conn.Identity); err != nil {
			h.sendError(conn, err.Error())
		}

	default:
		h.logger.Debug("ignoring unknown event",
			zap.String("connection", conn.ID), zap.String("event", event.Type))
	}
}

func (h *SocketHandler) withRoom(payload json.RawMessage, fn func(*Room)) {
	var p roomPayload
	if json.Unmarshal(payload, &p) != nil || p.Room == "" {
		return
	}
	if room, ok := h.registry.Get(p.Room); ok {
		fn(room)
	}
}

func (h *SocketHandler) sendError(conn *Conn, message string) {
	h.hub.Unicast(conn.ID, models.Event{
		Type:    models.EventError,
		Payload: models.ErrorPayload{Message: message},
	})
}
