package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSubmissionStats returns the pending / approved / declined counters for the dashboard.
func (sc *SubmissionController) GetSubmissionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   sc.repo.Stats(),
	})
}
