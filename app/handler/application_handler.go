package handler

import (
	"net/http"
	"strconv"
	"time"

	"loanpilot/internal/model"
	"loanpilot/internal/service"
	"loanpilot/pkg/config"
	"loanpilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ApplicationHandler handles loan application operations
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates application handler
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
	}
}

// Submit submits an application for asynchronous scoring
// @Summary Submit loan application
// @Description Accept an applicant profile and queue it for scoring
// @Tags applications
// @Accept json
// @Produce json
// @Param request body model.SubmitRequest true "Application request"
// @Success 200 {object} model.SubmitResponse
// @Router /v1/applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.applicationService.Submit(c.Request.Context(), &req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to submit application: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitSync submits an application and waits for the score
// @Summary Submit loan application synchronously
// @Description Accept an applicant profile and wait for the sanction amount
// @Tags applications
// @Accept json
// @Produce json
// @Param request body model.SubmitRequest true "Application request"
// @Param timeout query int false "Wait timeout in seconds"
// @Success 200 {object} model.StatusResponse
// @Router /v1/applications/sync [post]
func (h *ApplicationHandler) SubmitSync(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	timeout := time.Duration(config.GlobalConfig.Queue.TaskTimeout) * time.Second
	if raw := c.Query("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout"})
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}

	resp, err := h.applicationService.SubmitSync(c.Request.Context(), &req, timeout)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to score application synchronously: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status gets application status
// @Summary Get application status
// @Description Get application status and sanction amount by application ID
// @Tags applications
// @Produce json
// @Param application_id path string true "Application ID"
// @Success 200 {object} model.StatusResponse
// @Router /v1/applications/{application_id} [get]
func (h *ApplicationHandler) Status(c *gin.Context) {
	applicationID := c.Param("application_id")
	if applicationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "application_id required"})
		return
	}

	resp, err := h.applicationService.GetStatus(c.Request.Context(), applicationID)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get application status, application_id: %s, error: %v", applicationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List lists recent applications
// @Summary List applications
// @Description List recent applications, optionally filtered by status
// @Tags applications
// @Produce json
// @Param status query string false "Status filter (RECEIVED, SCORING, SCORED, FAILED)"
// @Param limit query int false "Maximum number of results" default(50)
// @Success 200 {array} model.StatusResponse
// @Router /v1/applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	status := c.Query("status")
	if status != "" && !model.ApplicationStatus(status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	resp, err := h.applicationService.List(c.Request.Context(), status, limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list applications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": resp, "count": len(resp)})
}

// Score scores a profile directly without persisting an application
// @Summary Score an applicant profile
// @Description Predict the sanction amount for a profile without queueing
// @Tags applications
// @Accept json
// @Produce json
// @Param request body model.ScoreRequest true "Score request"
// @Success 200 {object} model.ScoreResponse
// @Router /v1/score [post]
func (h *ApplicationHandler) Score(c *gin.Context) {
	var req model.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.applicationService.ScoreSync(c.Request.Context(), &req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to score profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
