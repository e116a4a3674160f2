package handlers

import (
	"net/http"

	"mindcascade/internal/domain"

	"github.com/gin-gonic/gin"
)

type launchRequest struct {
	BatteryLevel *int `json:"battery_level" binding:"required,min=0,max=100"`
	VPNActive    bool `json:"vpn_active"`
}

// Launch resolves the startup gate for the session
func (h *Handler) Launch(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "battery_level must be between 0 and 100"})
		return
	}

	res, err := h.Sessions.Launch(c.Request.Context(), id, domain.DeviceSignals{
		BatteryLevel: *req.BatteryLevel,
		VPNActive:    req.VPNActive,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
