package handlers

import (
	"net/http"

	"mindcascade/internal/logger"
	"mindcascade/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenParser resolves a token to a session id.
type TokenParser interface {
	Parse(token string) (string, error)
}

// WS streams ledger snapshots. Browsers cannot set headers on a websocket
// handshake, so the token comes in the query string.
func (h *Handler) WS(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		sess, err := h.Sessions.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}

		allowedOrigin := h.AllowedOrigin
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		go ws.NewClient(id, conn, h.Hub, h.Sessions.Reporter(id)).Run(sess.Ledger)
	}
}
