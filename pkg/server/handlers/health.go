package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/zonegraph/pkg/driver"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "zonegraph"

// HealthHandler handles health check requests
type HealthHandler struct {
	client driver.GraphSearcher
}

// NewHealthHandler creates a new health handler. client may be nil, in
// which case the service reports itself as not ready.
func NewHealthHandler(client driver.GraphSearcher) *HealthHandler {
	return &HealthHandler{client: client}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	check := h.checkGraph(ctx)
	status, code := "ready", http.StatusOK
	if check["status"] != "healthy" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{"graph": check},
	})
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	graph := h.checkGraph(ctx)
	if reporter, ok := h.client.(driver.StatsReporter); ok && graph["status"] == "healthy" {
		if stats, err := reporter.GetStats(ctx, ""); err == nil {
			graph["stats"] = stats
		}
	}

	metrics := h.getSystemMetrics()
	response := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{"go_version": GoVersion},
		"checks": gin.H{
			"graph": graph,
			"system": gin.H{
				"status":       "healthy",
				"memory_usage": metrics.MemoryUsage,
				"goroutines":   metrics.Goroutines,
				"gc_cycles":    metrics.GCCycles,
				"heap_objects": metrics.HeapObjects,
				"stack_usage":  metrics.StackUsage,
			},
		},
		"metrics": gin.H{"response_time_ms": time.Since(startTime).Milliseconds()},
	}

	if graph["status"] != "healthy" {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// checkGraph runs a cheap query against the graph. An empty search
// result still proves the connection works.
func (h *HealthHandler) checkGraph(ctx context.Context) gin.H {
	if h.client == nil {
		return gin.H{"status": "unhealthy", "error": "graph client not initialized"}
	}

	start := time.Now()
	_, err := h.client.Search(ctx, "health-check", 1)
	check := gin.H{
		"status":      "healthy",
		"duration_ms": time.Since(start).Milliseconds(),
		"operation":   "Search",
	}
	if err != nil {
		check["status"] = "unhealthy"
		check["error"] = err.Error()
	}
	return check
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics
func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
