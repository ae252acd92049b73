package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/studysync/studysync/auth"
	"github.com/studysync/studysync/db"
	"github.com/studysync/studysync/models"
)

// AuthHandler implements account signup and login, issuing the JWTs the
// websocket handshake and the room API consume.
type AuthHandler struct {
	users    *db.UserStore
	verifier *auth.Verifier
	logger   *zap.Logger
}

func NewAuthHandler(users *db.UserStore, verifier *auth.Verifier, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, verifier: verifier, logger: logger}
}

// Signup registers a new account and returns a token for it.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Name, email and password required")
		return
	}

	user, err := h.users.Create(req.Name, req.Email, req.Password)
	if err != nil {
		if err == models.ErrEmailTaken {
			standardResponse(c, http.StatusConflict, "error", nil, err.Error())
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	token, err := h.verifier.Issue(*user)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	standardResponse(c, http.StatusCreated, "created", gin.H{"token": token, "user": user}, "")
}

// Login authenticates an account and returns a fresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Email and password required")
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if err == models.ErrBadLogin {
			standardResponse(c, http.StatusUnauthorized, "error", nil, err.Error())
			return
		}
		h.logger.Error("failed to authenticate user", zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	token, err := h.verifier.Issue(*user)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Server error")
		return
	}

	standardResponse(c, http.StatusOK, "ok", gin.H{"token": token, "user": user}, "")
}
