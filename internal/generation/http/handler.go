package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appforge/appforge-backend/internal/apperr"
	"github.com/appforge/appforge-backend/internal/generation/service"
	"github.com/appforge/appforge-backend/internal/logger"
)

const defaultKeepAlive = 15 * time.Second

// Handler serves the generation stream
type Handler struct {
	svc       *service.GenerationService
	keepAlive time.Duration
}

// New creates a new Handler
func New(svc *service.GenerationService) *Handler {
	return &Handler{svc: svc, keepAlive: defaultKeepAlive}
}

// Register attaches the generation route to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	if err := h.svc.Preflight(req); err != nil {
		writeError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	w := &sseWriter{c: c, flusher: flusher}
	ctx := c.Request.Context()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	defer func() {
		close(stop)
		wg.Wait()
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				w.ping()
			}
		}
	}()

	err := h.svc.Generate(ctx, req, w.emit)
	if err == nil {
		return
	}
	if !w.started() {
		writeError(c, err)
		return
	}
	l := logger.FromContext(ctx, "generate")
	l.Warn().Err(err).Msg("stream aborted")
}

// sseWriter writes events as `data: {json}` frames. Headers go out with the
// first event so errors raised before it can still be answered with JSON.
type sseWriter struct {
	mu      sync.Mutex
	c       *gin.Context
	flusher http.Flusher
	open    bool
}

func (w *sseWriter) started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *sseWriter) begin() {
	if w.open {
		return
	}
	w.c.Header("Content-Type", "text/event-stream")
	w.c.Header("Cache-Control", "no-cache")
	w.c.Header("Connection", "keep-alive")
	w.c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	w.c.Status(http.StatusOK)
	w.open = true
}

func (w *sseWriter) emit(ev service.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	w.begin()

	var err error
	if ev.Type == service.EventDone {
		_, err = fmt.Fprint(w.c.Writer, "data: [DONE]\n\n")
	} else {
		data, merr := json.Marshal(ev)
		if merr != nil {
			return merr
		}
		_, err = fmt.Fprintf(w.c.Writer, "data: %s\n\n", data)
	}
	if err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

func (w *sseWriter) ping() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return
	}
	fmt.Fprint(w.c.Writer, ": keep-alive\n\n")
	w.flusher.Flush()
}

// writeError answers a request that failed before streaming. Only validation
// and configuration messages are shown to the caller.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	msg := "Generation failed. Please try again."
	if errors.As(err, &ae) && (ae.Kind == apperr.KindValidation || ae.Kind == apperr.KindConfiguration) {
		msg = ae.Message
	} else {
		l := logger.FromContext(c.Request.Context(), "generate")
		l.Error().Err(err).Msg("generation rejected")
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": msg})
}
