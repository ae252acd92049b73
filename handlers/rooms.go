package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/studysync/studysync/auth"
	"github.com/studysync/studysync/db"
	"github.com/studysync/studysync/models"
	"github.com/studysync/studysync/realtime"
)

// standardResponse sends a consistent JSON response
func standardResponse(c *gin.Context, code int, status string, data interface{}, err string) {
	response := gin.H{"status": status}

	if data != nil {
		response["data"] = data
	}

	if err != "" {
		response["error"] = err
	}

	c.JSON(code, response)
}

// RoomHandler handles the room CRUD surface. Live coordination happens
// over the websocket; these routes manage the durable records and
// expose verified presence for the lobby.
type RoomHandler struct {
	store    *db.Store
	registry *realtime.Registry
	logger   *zap.Logger
}

func NewRoomHandler(store *db.Store, registry *realtime.Registry, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{store: store, registry: registry, logger: logger}
}

// roomView is a room record enhanced with verified live presence.
type roomView struct {
	models.RoomRecord
	ActiveUsers []models.Presence `json:"activeUsers"`
	ActiveCount int               `json:"activeCount"`
}

// CreateRoom handles room creation requests.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		standardResponse(c, http.StatusUnauthorized, "error", nil, "No token")
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		IsPublic *bool  `json:"isPublic"`
		Password string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil || req.Name == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Room name required")
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	if !isPublic && req.Password == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Password required for private rooms")
		return
	}

	var passwordHash string
	if !isPublic {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
			return
		}
		passwordHash = string(hash)
	}

	record := &models.RoomRecord{
		Name:     req.Name,
		Host:     claims.User.ID,
		Members:  []models.Presence{},
		IsPublic: isPublic,
		Password: passwordHash,
	}
	if err := h.store.Rooms.Create(record); err != nil {
		if err == models.ErrRoomExists {
			standardResponse(c, http.StatusConflict, "error", nil, err.Error())
			return
		}
		h.logger.Error("failed to create room", zap.String("room", req.Name), zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	h.logger.Info("room created", zap.String("room", req.Name),
		zap.Bool("public", isPublic), zap.String("host", claims.User.ID))
	standardResponse(c, http.StatusCreated, "created", gin.H{"room": record}, "")
}

// ListRooms returns all room records, each enhanced with its verified
// live member list.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	records, err := h.store.Rooms.List()
	if err != nil {
		h.logger.Error("failed to list rooms", zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	views := make([]roomView, 0, len(records))
	for _, record := range records {
		active := h.registry.LiveMembers(record.Name)
		if active == nil {
			active = []models.Presence{}
		}
		views = append(views, roomView{
			RoomRecord:  record,
			ActiveUsers: active,
			ActiveCount: len(active),
		})
	}

	standardResponse(c, http.StatusOK, "ok", gin.H{"rooms": views}, "")
}

// GetRoom returns a single room record.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	record, err := h.store.Rooms.Find(c.Param("name"))
	if err != nil {
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}
	if record == nil {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrRoomNotFound.Error())
		return
	}
	standardResponse(c, http.StatusOK, "ok", gin.H{"room": record}, "")
}

// VerifyPassword checks a private room's password. Public rooms always
// pass.
func (h *RoomHandler) VerifyPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid request format")
		return
	}

	record, err := h.store.Rooms.Find(c.Param("name"))
	if err != nil {
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}
	if record == nil {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrRoomNotFound.Error())
		return
	}

	if record.IsPublic {
		standardResponse(c, http.StatusOK, "ok", gin.H{"success": true}, "")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(record.Password), []byte(req.Password)) != nil {
		standardResponse(c, http.StatusForbidden, "error", gin.H{"success": false}, "Incorrect password")
		return
	}
	standardResponse(c, http.StatusOK, "ok", gin.H{"success": true}, "")
}

// DeleteRoom removes a room, host only. Live state, the durable record
// and the chat history all go.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		standardResponse(c, http.StatusUnauthorized, "error", nil, "No token")
		return
	}

	name := c.Param("name")
	record, err := h.store.Rooms.Find(name)
	if err != nil {
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}
	if record == nil {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrRoomNotFound.Error())
		return
	}
	if record.Host != claims.User.ID {
		standardResponse(c, http.StatusForbidden, "error", nil, models.ErrNotAuthorized.Error())
		return
	}

	initiator := models.Identity{
		UserID:          claims.User.ID,
		DisplayName:     claims.User.Name,
		IsAuthenticated: true,
	}
	// Terminate handles the connected case; fall back to direct durable
	// deletion when no live state exists.
	if err := h.registry.Terminate(name, initiator); err != nil {
		if err == models.ErrNotAuthorized {
			standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
			return
		}
		if err := h.store.Rooms.Delete(name); err != nil {
			h.logger.Error("failed to delete room record", zap.String("room", name), zap.Error(err))
			standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
			return
		}
		if err := h.store.Messages.DeleteAll(name); err != nil {
			h.logger.Error("failed to delete room messages", zap.String("room", name), zap.Error(err))
		}
	}

	standardResponse(c, http.StatusOK, "deleted", nil, "")
}
