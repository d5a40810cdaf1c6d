package httpHandler

import (
	"net/http"

	"brewos-server/entities"
	"brewos-server/repositories"
	"brewos-server/ws"

	"github.com/gin-gonic/gin"
)

type NodeHandler struct {
	nodes repositories.NodeRepository
	mgr   *ws.Manager
}

func NewNodeHandler(nodes repositories.NodeRepository, mgr *ws.Manager) *NodeHandler {
	return &NodeHandler{nodes: nodes, mgr: mgr}
}

type createNodeReq struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// POST /api/v1/nodes — provisioning, used by node-setup
func (h *NodeHandler) Create(c *gin.Context) {
	var req createNodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	node := &entities.Node{Name: req.Name, Address: req.Address}
	if err := h.nodes.Create(node); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, node)
}

// GET /api/v1/nodes
func (h *NodeHandler) GetAll(c *gin.Context) {
	nodes, err := h.nodes.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nodes, "count": len(nodes)})
}

// GET /api/v1/nodes/:id
func (h *NodeHandler) Get(c *gin.Context) {
	node, err := h.nodes.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": "no node found with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, node)
}

// GET /api/v1/nodes/connected
func (h *NodeHandler) GetConnected(c *gin.Context) {
	ids := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"nodes": ids, "count": len(ids)})
}
