package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/ra-engine/internal/ra"
	"github.com/rawblock/ra-engine/pkg/models"
)

// handleHealth returns engine status and capabilities for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	stats := h.searchRunner.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "RawBlock RA Engine v1.0",
		"capabilities": gin.H{
			"junction_tree_bp": true,
			"ipf":              true,
			"beam_search":      true,
			"lattice_bfs":      true,
			"crosscheck_mode":  true,
			"power_analysis":   true,
		},
		"datasets":      h.datasets.Len(),
		"searchRuns":    stats.TotalRuns,
		"activeRuns":    stats.ActiveRuns,
		"wsSubscribers": h.wsHub.SubscriberCount(),
		"dbConnected":   h.dbStore != nil,
	})
}

// handleCreateDataset registers a dataset from its spec.
// POST /api/v1/datasets {variables, rows, noFrequency}
// With {"synthetic": true} a seeded chain dataset is generated instead,
// gated behind ENABLE_SYNTHETIC to keep test data out of production.
func (h *APIHandler) handleCreateDataset(c *gin.Context) {
	var req struct {
		models.DatasetSpec
		Synthetic bool  `json:"synthetic,omitempty"`
		Samples   int   `json:"samples,omitempty"`
		Seed      int64 `json:"seed,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	spec := req.DatasetSpec
	if req.Synthetic {
		if !IsSyntheticEnabled() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Synthetic dataset generation is disabled in production",
				"hint":  "Set ENABLE_SYNTHETIC=true to enable test data generation",
			})
			return
		}
		samples := req.Samples
		if samples <= 0 {
			samples = 5000
		}
		spec = ra.SyntheticChainSpec(samples, 2, 0.9, req.Seed)
	}

	summary, err := h.datasets.Register(spec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to build dataset", "details": err.Error()})
		return
	}

	if h.dbStore != nil {
		if err := h.dbStore.SaveDataset(c.Request.Context(), summary, spec); err != nil {
			log.Printf("Failed to persist dataset %s: %v", summary.ID, err)
		}
	}
	c.JSON(http.StatusOK, summary)
}

// handleGetDataset returns the stored summary.
func (h *APIHandler) handleGetDataset(c *gin.Context) {
	entry, ok := h.datasets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}
	c.JSON(http.StatusOK, entry.Summary)
}

// handleFitModel fits one model against a dataset and persists the summary.
// POST /api/v1/datasets/:id/fit {"model": "AB:BC"}
func (h *APIHandler) handleFitModel(c *gin.Context) {
	entry, ok := h.datasets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {model}"})
		return
	}

	// clone so concurrent fits never share manager caches
	mgr := entry.Manager.Clone()
	m, err := mgr.MakeModel(req.Model)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model spec", "details": err.Error()})
		return
	}
	fit := mgr.FitModel(c.Request.Context(), m)

	if h.dbStore != nil {
		if err := h.dbStore.SaveFitResult(context.Background(), entry.Summary.ID, fit); err != nil {
			log.Printf("Failed to persist fit result for %s: %v", fit.ModelName, err)
		}
	}
	c.JSON(http.StatusOK, fit)
}

// handleResiduals returns the observed-minus-fitted table for one model.
// POST /api/v1/datasets/:id/residuals {"model": "AB:BC"}
func (h *APIHandler) handleResiduals(c *gin.Context) {
	entry, ok := h.datasets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {model}"})
		return
	}

	mgr := entry.Manager.Clone()
	m, err := mgr.MakeModel(req.Model)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model spec", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mgr.ComputeResiduals(c.Request.Context(), m))
}

// handleValidateSpec runs best-effort validation and reports every bad
// token instead of failing fast.
// POST /api/v1/datasets/:id/validate {"model": "AB:QX"}
func (h *APIHandler) handleValidateSpec(c *gin.Context) {
	entry, ok := h.datasets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {model}"})
		return
	}
	c.JSON(http.StatusOK, entry.Manager.Clone().ValidateReferenceModel(req.Model))
}

// handleStartSearch launches a lattice search in the background.
// POST /api/v1/datasets/:id/search {seed, direction, statistic, width, maxLevels}
func (h *APIHandler) handleStartSearch(c *gin.Context) {
	entry, ok := h.datasets.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Cap the bounds to prevent unbounded background resource consumption.
	if req.MaxLevels > maxSearchLevels {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Search too deep",
			"maxLevels": maxSearchLevels,
			"hint":      "Narrow the request or run multiple searches",
		})
		return
	}
	if req.Width > maxSearchWidth {
		req.Width = maxSearchWidth
	}

	runID := h.searchRunner.Start(entry.Manager, entry.Summary.ID, req)
	c.JSON(http.StatusOK, gin.H{
		"status": "search_started",
		"runId":  runID,
	})
}

// handleGetSearchRun returns run status and ranked candidates.
func (h *APIHandler) handleGetSearchRun(c *gin.Context) {
	run, ok := h.searchRunner.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown search run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleCancelSearch requests cooperative cancellation of a running search.
func (h *APIHandler) handleCancelSearch(c *gin.Context) {
	if !h.searchRunner.Cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or finished search run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancel_requested"})
}
