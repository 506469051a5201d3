package handlers

import (
	"errors"
	"net/http"
	"strings"

	"community-load/internal/api/models"
	"community-load/internal/runner"
	"community-load/internal/store"

	"github.com/gin-gonic/gin"
)

// RunHandler queues runs and reports on them
type RunHandler struct {
	store store.Store
	hub   *runner.Hub
}

func NewRunHandler(s store.Store, hub *runner.Hub) *RunHandler {
	return &RunHandler{store: s, hub: hub}
}

// CreateRun handles POST /api/v1/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	run, err := h.store.CreateRun(c.Request.Context(), req.ConfigID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "CONFIG_NOT_FOUND", "config not found")
		return
	}
	if err != nil {
		respondStoreError(c, err, "run")
		return
	}
	c.JSON(http.StatusCreated, models.RunCreatedResponse{RunID: run.ID, Status: string(run.Status)})
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	var q models.RunListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	runs, err := h.store.ListRuns(c.Request.Context(), q.Active)
	if err != nil {
		respondStoreError(c, err, "runs")
		return
	}
	out := make([]models.RunSummary, len(runs))
	for i, r := range runs {
		out[i] = models.NewRunSummary(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetLog handles GET /api/v1/runs/:id/log
func (h *RunHandler) GetLog(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "run")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(run.Log))
}

// StreamLog handles GET /api/v1/runs/:id/ws. The stored log is replayed first; a finished
// run then gets its final status and the socket closes.
func (h *RunHandler) StreamLog(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "run")
		return
	}
	var backlog []string
	if text := strings.TrimSuffix(run.Log, "\n"); text != "" {
		backlog = strings.Split(text, "\n")
	}
	var done *runner.Message
	if !run.Status.Active() {
		done = &runner.Message{Type: runner.TypeStatus, RunID: run.ID, Status: string(run.Status), Error: run.ErrorMessage}
	}
	h.hub.ServeWS(c.Writer, c.Request, run.ID, backlog, done)
}
