package httpHandler

import (
	"net/http"
	"strconv"

	"brewos-server/entities"
	"brewos-server/repositories"

	"github.com/gin-gonic/gin"
)

type EndpointHandler struct {
	endpoints repositories.EndpointRepository
	telemetry repositories.TelemetryRepository
}

func NewEndpointHandler(endpoints repositories.EndpointRepository, telemetry repositories.TelemetryRepository) *EndpointHandler {
	return &EndpointHandler{endpoints: endpoints, telemetry: telemetry}
}

type createEndpointReq struct {
	NodeID          string   `json:"node_id" binding:"required"`
	Channel         string   `json:"channel" binding:"required"`
	Name            string   `json:"name"`
	Kind            string   `json:"kind" binding:"required"`
	ValueType       string   `json:"value_type" binding:"required"`
	Unit            string   `json:"unit"`
	RangeMin        *float64 `json:"range_min"`
	RangeMax        *float64 `json:"range_max"`
	PulseDurationMs int      `json:"pulse_duration_ms"`
}

// POST /api/v1/endpoints — provisioning, used by node-setup
func (h *EndpointHandler) Create(c *gin.Context) {
	var req createEndpointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	endpoint := &entities.Endpoint{
		NodeID:          req.NodeID,
		Channel:         req.Channel,
		Name:            req.Name,
		Kind:            req.Kind,
		ValueType:       req.ValueType,
		Unit:            req.Unit,
		RangeMin:        req.RangeMin,
		RangeMax:        req.RangeMax,
		PulseDurationMs: req.PulseDurationMs,
	}
	if err := h.endpoints.Create(endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, endpoint)
}

// GET /api/v1/endpoints
func (h *EndpointHandler) GetAll(c *gin.Context) {
	var (
		endpoints []entities.Endpoint
		err       error
	)
	if nodeID := c.Query("node_id"); nodeID != "" {
		endpoints, err = h.endpoints.GetByNodeID(nodeID)
	} else {
		endpoints, err = h.endpoints.GetAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": endpoints, "count": len(endpoints)})
}

// GET /api/v1/endpoints/:id
func (h *EndpointHandler) Get(c *gin.Context) {
	endpoint, err := h.endpoints.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no endpoint found with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, endpoint)
}

// GET /api/v1/endpoints/:id/history?limit=
func (h *EndpointHandler) History(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	readings, err := h.telemetry.GetHistory(c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": readings, "count": len(readings)})
}
