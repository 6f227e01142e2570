package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/transport/http/dto"
	"fintrade/internal/feature/prices/usecase"
)

// RunService is what the handler needs from the pipeline runner.
type RunService interface {
	Trigger(ctx context.Context) (entity.RunOutcome, error)
	Start(ctx context.Context) (<-chan usecase.RunResult, error)
	Replay(ctx context.Context, symbol string, window entity.Window) (entity.EntityOutcome, error)
	Latest(ctx context.Context) (entity.RunOutcome, bool, error)
}

// RunHandler exposes the pipeline to an orchestrator over HTTP.
type RunHandler struct {
	runs RunService
	// background runs outlive the request; they stop when base is cancelled
	base context.Context
}

// NewRunHandler creates a RunHandler. base bounds runs started without ?wait.
func NewRunHandler(runs RunService, base context.Context) *RunHandler {
	if base == nil {
		base = context.Background()
	}
	return &RunHandler{runs: runs, base: base}
}

// Trigger starts a run.
// POST /runs        -> 202, the run continues in the background
// POST /runs?wait=1 -> 200 with the Run Outcome once the run has finished
func (h *RunHandler) Trigger(c *gin.Context) {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	if wait {
		out, err := h.runs.Trigger(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	done, err := h.runs.Start(h.base)
	if err != nil {
		h.writeError(c, err)
		return
	}
	go func() {
		res := <-done
		if res.Err != nil {
			slog.Error("background run failed", "error", res.Err)
			return
		}
		slog.Info("background run finished", "run_id", res.Outcome.RunID, "status", res.Outcome.Status)
	}()
	c.JSON(http.StatusAccepted, dto.RunAccepted{Status: "started"})
}

// Replay loads an archived window into the warehouse without calling the API.
func (h *RunHandler) Replay(c *gin.Context) {
	var req dto.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, err := entity.ParseDay(req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := entity.ParseDay(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}

	out, err := h.runs.Replay(c.Request.Context(), req.Symbol, entity.Between(from, to))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if out.Status == entity.StatusFailed {
		c.JSON(http.StatusUnprocessableEntity, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Latest returns the most recently recorded Run Outcome, or 404 when none exists.
func (h *RunHandler) Latest(c *gin.Context) {
	out, ok, err := h.runs.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run recorded"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *RunHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrNoEntities):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
