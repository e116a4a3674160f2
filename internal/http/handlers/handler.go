package handlers

import (
	"errors"
	"net/http"

	"mindcascade/internal/http/middleware"
	"mindcascade/internal/logger"
	"mindcascade/internal/service"
	"mindcascade/internal/ws"

	"github.com/gin-gonic/gin"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(sessionID string) (string, error)
}

type Handler struct {
	Sessions      *service.SessionService
	Tokens        TokenIssuer
	Hub           *ws.Hub
	AllowedOrigin string
}

func NewHandler(sessions *service.SessionService, tokens TokenIssuer, hub *ws.Hub) *Handler {
	return &Handler{
		Sessions: sessions,
		Tokens:   tokens,
		Hub:      hub,
	}
}

// sessionID извлекает session_id из контекста Gin
func sessionID(c *gin.Context) (string, bool) {
	id, ok := middleware.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrUnknownGame),
		errors.Is(err, service.ErrUnknownReward),
		errors.Is(err, service.ErrInvalidPoints),
		errors.Is(err, service.ErrInvalidLevel),
		errors.Is(err, service.ErrInvalidSignals):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.WithContext(c.Request.Context()).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
