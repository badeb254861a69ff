package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/server/dto"
)

// GraphReader is the part of the graph client the query endpoints use.
type GraphReader interface {
	driver.GraphSearcher
	driver.GraphTraversal
	driver.TemporalOperations
}

// RetrieveHandler handles data retrieval requests
type RetrieveHandler struct {
	client GraphReader
}

// NewRetrieveHandler creates a new retrieve handler
func NewRetrieveHandler(client GraphReader) *RetrieveHandler {
	return &RetrieveHandler{client: client}
}

// Search handles POST /search with a JSON body and GET /search?query=
func (h *RetrieveHandler) Search(c *gin.Context) {
	var req dto.SearchQuery
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query field is required and cannot be empty")
		return
	}

	results, err := h.client.Search(c.Request.Context(), req.Query, req.Limit())
	if err != nil {
		writeError(c, err)
		return
	}

	facts := make([]dto.FactResult, 0, len(results))
	for _, r := range results {
		facts = append(facts, dto.NewFactResult(r))
	}
	c.JSON(http.StatusOK, dto.SearchResults{
		Query: req.Query,
		Facts: facts,
		Total: len(facts),
	})
}

// GetRelationships handles GET /entities/:name/relationships?depth=
func (h *RetrieveHandler) GetRelationships(c *gin.Context) {
	var req dto.RelationshipsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Depth == 0 {
		req.Depth = dto.DefaultDepth
	}

	rel, err := h.client.GetEntityRelationships(c.Request.Context(), c.Param("name"), req.Depth)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

// GetTimeline handles GET /entities/:name/timeline?start=&end=
func (h *RetrieveHandler) GetTimeline(c *gin.Context) {
	var req dto.TimelineQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.End.IsZero() && req.End.Before(req.Start) {
		badRequest(c, "end must not be before start")
		return
	}

	name := c.Param("name")
	entries, err := h.client.GetEntityTimeline(c.Request.Context(), name, req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TimelineResponse{
		Entity:  name,
		Entries: entries,
		Total:   len(entries),
	})
}

// GetStats handles GET /stats?group_id=
func (h *RetrieveHandler) GetStats(c *gin.Context) {
	reporter, ok := h.client.(driver.StatsReporter)
	if !ok {
		c.JSON(http.StatusNotImplemented, dto.ErrorResponse{
			Error:   "not_implemented",
			Message: "graph client does not report statistics",
			Code:    http.StatusNotImplemented,
		})
		return
	}

	stats, err := reporter.GetStats(c.Request.Context(), c.Query("group_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
