package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"loanpilot/internal/model"
	"loanpilot/internal/service"
	"loanpilot/pkg/deploy/k8s"
	"loanpilot/pkg/interfaces"
	"loanpilot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ReleaseHandler handles deployment release operations
type ReleaseHandler struct {
	releaseService     *service.ReleaseService
	deploymentProvider interfaces.DeploymentProvider
}

// NewReleaseHandler creates release handler
func NewReleaseHandler(releaseService *service.ReleaseService, deploymentProvider interfaces.DeploymentProvider) *ReleaseHandler {
	return &ReleaseHandler{
		releaseService:     releaseService,
		deploymentProvider: deploymentProvider,
	}
}

// Rollout creates a release and applies it to the cluster
// @Summary Roll out the scoring app
// @Description Create a release and apply its deployment manifest
// @Tags releases
// @Accept json
// @Produce json
// @Param request body model.RolloutRequest false "Rollout request"
// @Success 200 {object} model.RolloutResponse
// @Router /api/v1/releases [post]
func (h *ReleaseHandler) Rollout(c *gin.Context) {
	// An empty body rolls out the configured defaults.
	var req model.RolloutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.releaseService.Rollout(c.Request.Context(), &req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to roll out release: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Preview renders the manifest a rollout request would apply
// @Summary Preview deployment YAML
// @Description Render the deployment manifest without applying it
// @Tags releases
// @Accept json
// @Produce plain
// @Param request body model.RolloutRequest false "Rollout request"
// @Success 200 {string} string "Deployment manifest"
// @Router /api/v1/releases/preview [post]
func (h *ReleaseHandler) Preview(c *gin.Context) {
	var req model.RolloutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	manifest, err := h.releaseService.ManifestPreview(&req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to render manifest: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/yaml", []byte(manifest))
}

// Validate checks a submitted deployment manifest against the rollout rules
// @Summary Validate deployment YAML
// @Description Parse a YAML manifest and run the deployment validator on it
// @Tags releases
// @Accept plain
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/releases/validate [post]
func (h *ReleaseHandler) Validate(c *gin.Context) {
	doc, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil || len(doc) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "manifest body required"})
		return
	}

	deployment, err := k8s.ParseYAML(string(doc))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	if err := k8s.ValidateDeployment(deployment); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "name": deployment.Name})
}

// List lists release history, newest first
// @Summary List releases
// @Tags releases
// @Produce json
// @Param limit query int false "Maximum number of releases"
// @Success 200 {array} model.Release
// @Router /api/v1/releases [get]
func (h *ReleaseHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	releases, err := h.releaseService.List(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list releases: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"releases": releases})
}

// Get retrieves a release by ID
// @Summary Get release
// @Tags releases
// @Produce json
// @Param release_id path string true "Release ID"
// @Success 200 {object} model.Release
// @Router /api/v1/releases/{release_id} [get]
func (h *ReleaseHandler) Get(c *gin.Context) {
	releaseID := c.Param("release_id")
	if releaseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "release_id required"})
		return
	}

	release, err := h.releaseService.Get(c.Request.Context(), releaseID)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get release, release_id: %s, error: %v", releaseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if release == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "release not found"})
		return
	}

	c.JSON(http.StatusOK, release)
}

// Status reports the live deployment state
// @Summary Get deployment status
// @Tags releases
// @Produce json
// @Success 200 {object} model.DeploymentStatus
// @Router /api/v1/deployment/status [get]
func (h *ReleaseHandler) Status(c *gin.Context) {
	status, err := h.releaseService.Status(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get deployment status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"healthy": status.Healthy(),
	})
}

// Scale changes the replica count of the running deployment
// @Summary Scale deployment
// @Tags releases
// @Accept json
// @Param request body model.ScaleRequest true "Scale request"
// @Success 200 {object} map[string]string
// @Router /api/v1/deployment/scale [put]
func (h *ReleaseHandler) Scale(c *gin.Context) {
	var req model.ScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.releaseService.Scale(c.Request.Context(), req.Replicas); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to scale deployment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deployment scaled"})
}

// Delete removes the deployment from the cluster
// @Summary Delete deployment
// @Tags releases
// @Success 200 {object} map[string]string
// @Router /api/v1/deployment [delete]
func (h *ReleaseHandler) Delete(c *gin.Context) {
	if err := h.releaseService.Delete(c.Request.Context()); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to delete deployment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deployment deleted"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, production should use stricter checks
	},
}

// WatchReplicas streams replica change events over a WebSocket
// @Summary Watch deployment replicas
// @Description WebSocket stream of replica change events
// @Tags releases
// @Router /api/v1/deployment/watch [get]
func (h *ReleaseHandler) WatchReplicas(c *gin.Context) {
	if h.deploymentProvider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deployment provider not available"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	events := make(chan interfaces.ReplicaEvent, 16)

	err = h.deploymentProvider.WatchReplicas(ctx, func(event interfaces.ReplicaEvent) {
		select {
		case events <- event:
		default:
			// Slow consumer, drop the event rather than block the informer.
		}
	})
	if err != nil {
		logger.ErrorCtx(ctx, "failed to watch replicas: %v", err)
		ws.WriteMessage(websocket.TextMessage, []byte("failed to watch replicas"))
		return
	}

	// Reads only surface client disconnects. The request context is not
	// reliably canceled once the connection is hijacked, so the read pump
	// signals the write loop directly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				logger.ErrorCtx(ctx, "failed to encode replica event: %v", err)
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
