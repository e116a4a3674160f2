package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenSession creates a session and returns its bearer token
func (h *Handler) OpenSession(c *gin.Context) {
	sess, err := h.Sessions.Open(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.Tokens.Issue(sess.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID,
		"token":      token,
	})
}
