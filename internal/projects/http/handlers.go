package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/appforge/appforge-backend/internal/logger"
	"github.com/appforge/appforge-backend/internal/projects/domain"
)

func (h *Handler) list(c *gin.Context) {
	items, err := h.store.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list_projects", err)
		return
	}
	if items == nil {
		items = []domain.ProjectSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	p, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internalError(c, "get_project", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": toView(p)})
}

func (h *Handler) delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	unlock := h.locks.Lock(id)
	err := h.store.Delete(c.Request.Context(), id)
	unlock()

	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internalError(c, "delete_project", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	l := logger.FromContext(c.Request.Context(), op)
	l.Error().Err(err).Msg("store request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
