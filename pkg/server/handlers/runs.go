package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/server/dto"
)

// RunsHandler reports ingestion run checkpoints.
type RunsHandler struct {
	checkpoints *checkpoint.CheckpointManager
}

// NewRunsHandler creates a runs handler over a checkpoint directory.
func NewRunsHandler(m *checkpoint.CheckpointManager) *RunsHandler {
	return &RunsHandler{checkpoints: m}
}

// ListRuns handles GET /runs
func (h *RunsHandler) ListRuns(c *gin.Context) {
	runs, err := h.checkpoints.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.RunStatus, 0, len(runs))
	for _, r := range runs {
		out = append(out, runStatus(r))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "total": len(out)})
}

// GetRun handles GET /runs/:run_id
func (h *RunsHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")
	cp, err := h.checkpoints.Load(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	if cp == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: "no checkpoint for run " + runID,
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, runStatus(cp))
}

func runStatus(cp *checkpoint.RunCheckpoint) dto.RunStatus {
	ingested, failed := cp.Counts()
	return dto.RunStatus{
		RunID:         cp.RunID,
		SourceName:    cp.SourceName,
		GroupID:       cp.GroupID,
		Completed:     cp.Completed,
		Progress:      cp.GetProgress(),
		TotalChunks:   cp.TotalChunks,
		Ingested:      ingested,
		Failed:        failed,
		EpisodeIDs:    cp.IngestedEpisodeIDs(),
		CreatedAt:     cp.CreatedAt,
		LastUpdatedAt: cp.LastUpdatedAt,
	}
}
