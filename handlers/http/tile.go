package httpHandler

import (
	"net/http"

	"brewos-server/entities"
	"brewos-server/repositories"

	"github.com/gin-gonic/gin"
)

// TileHandler exposes the logical endpoint groupings used for interlock
// scoping and alarm context.
type TileHandler struct {
	tiles repositories.TileRepository
}

func NewTileHandler(tiles repositories.TileRepository) *TileHandler {
	return &TileHandler{tiles: tiles}
}

type createTileReq struct {
	Name     string `json:"name" binding:"required"`
	TileType string `json:"tile_type"`
}

// POST /api/v1/tiles — provisioning, used by node-setup
func (h *TileHandler) Create(c *gin.Context) {
	var req createTileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	tile := &entities.Tile{Name: req.Name, TileType: req.TileType}
	if err := h.tiles.Create(tile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tile)
}

// GET /api/v1/tiles
func (h *TileHandler) GetAll(c *gin.Context) {
	tiles, err := h.tiles.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tiles, "count": len(tiles)})
}

// GET /api/v1/tiles/:id
func (h *TileHandler) Get(c *gin.Context) {
	tile, err := h.tiles.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no tile found with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, tile)
}
