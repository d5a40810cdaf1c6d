package httpHandler

import (
	"net/http"
	"time"

	"brewos-server/repositories"

	"github.com/gin-gonic/gin"
)

type AlarmHandler struct {
	alarms repositories.AlarmRepository
}

func NewAlarmHandler(alarms repositories.AlarmRepository) *AlarmHandler {
	return &AlarmHandler{alarms: alarms}
}

// GET /api/v1/alarms?status=active
func (h *AlarmHandler) GetAll(c *gin.Context) {
	alarms, err := h.alarms.GetAll(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alarms, "count": len(alarms)})
}

// GET /api/v1/alarms/:id
func (h *AlarmHandler) Get(c *gin.Context) {
	alarm, err := h.alarms.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no alarm found with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, alarm)
}

type ackAlarmReq struct {
	AcknowledgedBy string `json:"acknowledged_by" binding:"required"`
}

// POST /api/v1/alarms/:id/ack
func (h *AlarmHandler) Acknowledge(c *gin.Context) {
	var req ackAlarmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if _, err := h.alarms.GetByID(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no alarm found with id " + c.Param("id")})
		return
	}
	if err := h.alarms.Acknowledge(c.Param("id"), req.AcknowledgedBy, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "id": c.Param("id")})
}
