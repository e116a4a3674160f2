package handlers

import (
	"net/http"

	"mindcascade/internal/domain"

	"github.com/gin-gonic/gin"
)

// Stats returns averages, rewards and the onboarding flag
func (h *Handler) Stats(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	snap, err := h.Sessions.Stats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type scoreRequest struct {
	Game   domain.GameID `json:"game" binding:"required"`
	Points *int          `json:"points" binding:"required,min=0"`
}

func (h *Handler) RecordScore(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.Sessions.RecordScore(c.Request.Context(), id, req.Game, *req.Points); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type levelRequest struct {
	Game  domain.GameID `json:"game" binding:"required"`
	Level int           `json:"level" binding:"required,min=1"`
}

// RecordLevel is called by a mini-game after a passed level
func (h *Handler) RecordLevel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.Sessions.RecordLevel(c.Request.Context(), id, req.Game, req.Level)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type rewardRequest struct {
	Reward domain.RewardID `json:"reward" binding:"required"`
}

func (h *Handler) GrantReward(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.Sessions.GrantReward(c.Request.Context(), id, req.Reward); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CompleteOnboarding(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.Sessions.CompleteOnboarding(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetProgress clears scores and rewards after the user confirmed it
func (h *Handler) ResetProgress(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.Sessions.Reset(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Games lists the mini-game catalog
func (h *Handler) Games(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": domain.Catalog()})
}
