package handler

import (
	"net/http"

	"loanpilot/pkg/interfaces"
	"loanpilot/pkg/logger"
	asynqqueue "loanpilot/pkg/queue/asynq"

	"github.com/gin-gonic/gin"
)

// queueStats reports scoring backlog depth.
type queueStats interface {
	GetPendingTaskCount() (int, error)
}

// ModelHandler exposes the loaded prediction model
type ModelHandler struct {
	scorer interfaces.Scorer
	queue  queueStats
}

// NewModelHandler creates model handler
func NewModelHandler(scorer interfaces.Scorer, queueMgr *asynqqueue.Manager) *ModelHandler {
	h := &ModelHandler{scorer: scorer}
	if queueMgr != nil {
		h.queue = queueMgr
	}
	return h
}

// Info describes the currently loaded model and the scoring backlog
// @Summary Get model info
// @Description Feature layout, forest size, holdout evaluation metrics and pending scoring tasks
// @Tags model
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /v1/model [get]
func (h *ModelHandler) Info(c *gin.Context) {
	info := h.scorer.Info()
	if info == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not trained"})
		return
	}

	resp := gin.H{"model": info}
	if h.queue != nil {
		pending, err := h.queue.GetPendingTaskCount()
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "failed to read pending task count: %v", err)
		} else {
			resp["pending_scores"] = pending
		}
	}

	c.JSON(http.StatusOK, resp)
}
