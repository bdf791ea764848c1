// Package status exposes the localhost surface of the assistant: health,
// sync status reporting, a manual sync trigger, and the command entry
// point. Local operations never fail because of sync state; this surface
// is where sync failures are confined.
package status

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gramseva/swasthya-sahayak/internal/service/command"
	"github.com/gramseva/swasthya-sahayak/internal/sync"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

type Handler struct {
	syncManager *sync.Manager
	dispatcher  *command.Dispatcher
	logger      *logger.Logger
}

func NewHandler(syncManager *sync.Manager, dispatcher *command.Dispatcher, log *logger.Logger) *Handler {
	return &Handler{
		syncManager: syncManager,
		dispatcher:  dispatcher,
		logger:      log.WithComponent("status"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/healthz", h.HealthCheck)
	r.GET("/sync/status", h.SyncStatus)
	r.POST("/sync/trigger", h.TriggerSync)
	r.POST("/commands", h.DispatchCommand)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"status": "healthy"},
	})
}

func (h *Handler) SyncStatus(c *gin.Context) {
	state, pending, escalated, err := h.syncManager.Status(c.Request.Context())
	if err != nil {
		h.logger.Error(err, "failed to read sync status")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("sync status unavailable"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{
		"state":             state,
		"pending_uploads":   pending,
		"escalated_entries": escalated,
	}))
}

// TriggerSync requests an immediate pass, e.g. from a connectivity-change
// hook. It returns immediately; the pass runs in the sync goroutine.
func (h *Handler) TriggerSync(c *gin.Context) {
	h.syncManager.TriggerNow()
	c.JSON(http.StatusAccepted, NewSuccessResponse(gin.H{"triggered": true}))
}

func (h *Handler) DispatchCommand(c *gin.Context) {
	var cmd command.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid command payload"))
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
		case apperrors.IsValidation(err):
			c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		default:
			h.logger.Error(err, "command dispatch failed", "token", string(cmd.Token))
			c.JSON(http.StatusInternalServerError, NewErrorResponse("command failed"))
		}
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(result))
}

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}
