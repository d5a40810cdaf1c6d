package httpHandler

import (
	"net/http"

	"brewos-server/entities"
	"brewos-server/repositories"

	"github.com/gin-gonic/gin"
)

// InterlockHandler exposes the safety rules read-only plus a provisioning
// create for setup tooling. Rule lifecycle belongs to safety configuration.
type InterlockHandler struct {
	interlocks repositories.InterlockRepository
}

func NewInterlockHandler(interlocks repositories.InterlockRepository) *InterlockHandler {
	return &InterlockHandler{interlocks: interlocks}
}

// GET /api/v1/interlocks
func (h *InterlockHandler) GetAll(c *gin.Context) {
	interlocks, err := h.interlocks.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": interlocks, "count": len(interlocks)})
}

// GET /api/v1/interlocks/:id
func (h *InterlockHandler) Get(c *gin.Context) {
	interlock, err := h.interlocks.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no interlock found with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, interlock)
}

type createInterlockReq struct {
	Name              string   `json:"name" binding:"required"`
	Description       string   `json:"description"`
	Mode              string   `json:"mode"`
	Priority          int      `json:"priority"`
	Severity          string   `json:"severity"`
	Condition         string   `json:"condition" binding:"required"`
	AffectedEndpoints []string `json:"affected_endpoints"`
	AffectedTiles     []string `json:"affected_tiles"`
}

// POST /api/v1/interlocks — provisioning, used by node-setup
func (h *InterlockHandler) Create(c *gin.Context) {
	var req createInterlockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	interlock := &entities.Interlock{
		Name:              req.Name,
		Description:       req.Description,
		Mode:              req.Mode,
		Priority:          req.Priority,
		Severity:          req.Severity,
		Active:            true,
		Condition:         req.Condition,
		AffectedEndpoints: entities.EncodeIDList(req.AffectedEndpoints),
		AffectedTiles:     entities.EncodeIDList(req.AffectedTiles),
	}
	if _, err := interlock.ParseCondition(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition", "message": err.Error()})
		return
	}
	if err := h.interlocks.Create(interlock); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, interlock)
}
