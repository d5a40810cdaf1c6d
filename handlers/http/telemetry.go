package httpHandler

import (
	"encoding/json"
	"net/http"
	"time"

	"brewos-server/cache"
	"brewos-server/entities"
	"brewos-server/repositories"
	"brewos-server/usecases"

	"github.com/gin-gonic/gin"
)

type TelemetryHandler struct {
	endpoints  repositories.EndpointRepository
	telemetry  repositories.TelemetryRepository
	current    *cache.CurrentCache
	reconciler *usecases.Reconciler
}

func NewTelemetryHandler(endpoints repositories.EndpointRepository, telemetry repositories.TelemetryRepository, current *cache.CurrentCache, reconciler *usecases.Reconciler) *TelemetryHandler {
	return &TelemetryHandler{endpoints: endpoints, telemetry: telemetry, current: current, reconciler: reconciler}
}

// GET /api/v1/telemetry/latest
// Current values for every endpoint, cache-first.
func (h *TelemetryHandler) Latest(c *gin.Context) {
	if cached := h.current.All(); len(cached) > 0 {
		c.JSON(http.StatusOK, gin.H{"data": cached, "count": len(cached), "source": "cache"})
		return
	}
	currents, err := h.telemetry.GetAllCurrent()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	h.current.Warm(currents)
	c.JSON(http.StatusOK, gin.H{"data": currents, "count": len(currents), "source": "db"})
}

// GET /api/v1/telemetry/latest/:endpointId
func (h *TelemetryHandler) LatestForEndpoint(c *gin.Context) {
	endpointID := c.Param("endpointId")
	if cv, ok := h.current.Get(endpointID); ok {
		c.JSON(http.StatusOK, cv)
		return
	}
	cv, err := h.telemetry.GetCurrent(endpointID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no current value for endpoint " + endpointID})
		return
	}
	h.current.Put(*cv)
	c.JSON(http.StatusOK, cv)
}

type telemetryPushReq struct {
	EndpointID string          `json:"endpoint_id" binding:"required"`
	Value      json.RawMessage `json:"value" binding:"required"`
	Timestamp  string          `json:"timestamp"`
	Source     string          `json:"source"`
}

// POST /api/v1/telemetry
// External telemetry push (manual readings, simulators). Goes through the
// same reconcile path as command results.
func (h *TelemetryHandler) Push(c *gin.Context) {
	var req telemetryPushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if _, err := h.endpoints.GetByID(req.EndpointID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no endpoint found with id " + req.EndpointID})
		return
	}
	value, err := entities.ParseValue(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value", "message": err.Error()})
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp", "message": err.Error()})
			return
		}
		ts = parsed.UTC()
	}
	source := req.Source
	if source == "" {
		source = entities.SourceHardware
	}

	if err := h.reconciler.Reconcile(req.EndpointID, "", value, ts, source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded", "endpoint_id": req.EndpointID})
}

// GET /api/v1/telemetry/cache/stats
func (h *TelemetryHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "stats": h.current.Stats()})
}
