package httpHandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"brewos-server/entities"
	"brewos-server/repositories"
	"brewos-server/services"
	"brewos-server/usecases"

	"github.com/gin-gonic/gin"
)

type CommandHandler struct {
	pipeline *usecases.CommandPipeline
	pulses   *services.PulseScheduler
}

func NewCommandHandler(pipeline *usecases.CommandPipeline, pulses *services.PulseScheduler) *CommandHandler {
	return &CommandHandler{pipeline: pipeline, pulses: pulses}
}

type commandReq struct {
	EndpointID    string          `json:"endpointId" binding:"required"`
	Value         json.RawMessage `json:"value"`
	CommandType   string          `json:"commandType"`
	TileID        string          `json:"tileId"`
	CorrelationID string          `json:"correlationId"`
	RequestedBy   string          `json:"requestedBy"`
}

// POST /api/v1/command
// Single canonical command entry point: validate, evaluate interlocks,
// dispatch, reconcile. Every terminal response carries the command id.
func (h *CommandHandler) Execute(c *gin.Context) {
	var req commandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if req.CommandType == "" {
		req.CommandType = entities.CommandWrite
	}

	var value entities.Value
	if len(req.Value) > 0 {
		parsed, err := entities.ParseValue(req.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value", "message": err.Error()})
			return
		}
		value = parsed
	} else if req.CommandType != entities.CommandToggle {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": "endpointId and value are required"})
		return
	}

	result, err := h.pipeline.Submit(c.Request.Context(), usecases.SubmitRequest{
		EndpointID:    req.EndpointID,
		Value:         value,
		CommandType:   req.CommandType,
		TileID:        req.TileID,
		CorrelationID: req.CorrelationID,
		RequestedBy:   req.RequestedBy,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commandId":   result.Command.ID,
		"status":      entities.StatusSucceeded,
		"message":     "command executed successfully",
		"actualValue": result.ActualValue,
	})
}

func (h *CommandHandler) writeError(c *gin.Context, err error) {
	pe, ok := usecases.AsPipelineError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}

	switch pe.Code {
	case usecases.ErrCodeValidation, usecases.ErrCodeNotWritable:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": pe.Message})
	case usecases.ErrCodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": pe.Message})
	case usecases.ErrCodeBlocked, usecases.ErrCodeSafetyUnavailable:
		body := gin.H{
			"commandId": pe.CommandID,
			"status":    entities.StatusBlocked,
			"message":   pe.Message,
		}
		if pe.InterlockID != "" {
			body["interlockId"] = pe.InterlockID
		}
		c.JSON(http.StatusForbidden, body)
	case usecases.ErrCodeDispatchTimeout, usecases.ErrCodeDispatchFailed:
		c.JSON(http.StatusInternalServerError, gin.H{
			"commandId": pe.CommandID,
			"status":    entities.StatusFailed,
			"message":   pe.Message,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": pe.Message})
	}
}

// GET /api/v1/command/:id
// Full lifecycle snapshot; identical on every call once terminal.
func (h *CommandHandler) Get(c *gin.Context) {
	cmd, err := h.pipeline.GetCommand(c.Param("id"))
	if err != nil {
		if usecases.HasCode(err, usecases.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, commandSnapshot(cmd))
}

// GET /api/v1/commands?status=&endpointId=&correlationId=&limit=
func (h *CommandHandler) List(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	cmds, err := h.pipeline.ListCommands(repositories.CommandFilter{
		EndpointID:    c.Query("endpointId"),
		Status:        c.Query("status"),
		CorrelationID: c.Query("correlationId"),
		Limit:         limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "message": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(cmds))
	for i := range cmds {
		out = append(out, commandSnapshot(&cmds[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "count": len(out)})
}

// DELETE /api/v1/command/:id/reversion
// Cancels a pulse's pending reversion before it fires.
func (h *CommandHandler) CancelReversion(c *gin.Context) {
	if h.pulses == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pulse scheduler"})
		return
	}
	if !h.pulses.Cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending reversion", "commandId": c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "commandId": c.Param("id")})
}

func commandSnapshot(cmd *entities.Command) gin.H {
	snapshot := gin.H{
		"commandId":      cmd.ID,
		"status":         cmd.Status,
		"endpointId":     cmd.EndpointID,
		"tileId":         cmd.TileID,
		"commandType":    cmd.CommandType,
		"requestedValue": rawOrNil(cmd.RequestedValue),
		"actualValue":    rawOrNil(cmd.ActualValue),
		"requestedAt":    cmd.RequestedAt,
		"sentAt":         cmd.SentAt,
		"ackedAt":        cmd.AckedAt,
		"completedAt":    cmd.CompletedAt,
		"requestedBy":    cmd.RequestedBy,
		"correlationId":  cmd.CorrelationID,
		"errorMessage":   cmd.ErrorMessage,
	}
	if cmd.BlockedByInterlockID != "" {
		snapshot["interlockId"] = cmd.BlockedByInterlockID
	}
	return snapshot
}

func rawOrNil(encoded string) interface{} {
	if encoded == "" {
		return nil
	}
	return json.RawMessage(encoded)
}
