package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/appforge/appforge-backend/internal/logger"
	"github.com/appforge/appforge-backend/internal/publish/service"
)

// Handler serves the deploy endpoint
type Handler struct {
	svc *service.PublishService
}

// New creates a new Handler
func New(svc *service.PublishService) *Handler {
	return &Handler{svc: svc}
}

// Register attaches the deploy route to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/deploy", h.deploy)
}

type deployResponse struct {
	Success    bool    `json:"success"`
	URL        string  `json:"url"`
	ClaimURL   *string `json:"claimUrl"`
	ExpiresAt  *string `json:"expiresAt"`
	DeployedAt string  `json:"deployedAt"`
}

func (h *Handler) deploy(c *gin.Context) {
	var req service.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No code to deploy"})
		return
	}

	res, err := h.svc.Publish(c.Request.Context(), req)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No code to deploy"})
			return
		}
		l := logger.FromContext(c.Request.Context(), "deploy")
		l.Error().Err(err).Str("project_id", req.ProjectID).Msg("deploy failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Deployment failed. Please try again."})
		return
	}

	c.JSON(http.StatusOK, deployResponse{
		Success:    true,
		URL:        res.URL,
		ClaimURL:   optional(res.ClaimURL),
		ExpiresAt:  optional(res.ExpiresAt),
		DeployedAt: res.DeployedAt.UTC().Format(time.RFC3339Nano),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
