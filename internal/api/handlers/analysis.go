package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/services"
)

// AnalysisHandler exposes the analytics core to external collaborators.
type AnalysisHandler struct {
	analysisService *services.AnalysisService
}

// AnalysisRequest carries the readings snapshot to analyze.
type AnalysisRequest struct {
	Readings models.ReadingSet `json:"readings"`
}

// NewAnalysisHandler creates a handler around the analysis service.
func NewAnalysisHandler(analysisService *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// RunAnalysis runs one full analysis over the posted readings snapshot.
// The analysis itself never fails; only malformed requests are rejected.
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result := h.analysisService.Analyze(c.Request.Context(), req.Readings)
	c.JSON(http.StatusOK, result)
}

// ResetCaches clears all trend caches, the correlation alert cache and
// stored model artifacts.
func (h *AnalysisHandler) ResetCaches(c *gin.Context) {
	if err := h.analysisService.ResetCaches(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset caches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "analysis caches cleared"})
}
