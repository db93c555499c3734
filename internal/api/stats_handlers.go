package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/folio/internal/models"
)

// GetAllStats returns per-book stats plus library totals
func (h *Handler) GetAllStats(c *gin.Context) {
	stats, err := h.db.GetAllStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch stats")
		return
	}

	total := models.ReadingStats{}
	for _, s := range stats {
		total.TotalTime += s.TotalTime
		total.PagesRead += s.PagesRead
	}

	c.JSON(http.StatusOK, gin.H{
		"books":         stats,
		"count":         len(stats),
		"total_time":    total.TotalTime,
		"pages_read":    total.PagesRead,
		"reading_speed": total.Speed(),
	})
}

// GetBookStats returns the reading stats of one book
func (h *Handler) GetBookStats(c *gin.Context) {
	stats, err := h.db.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch stats")
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stats recorded"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RecordReading adds a finished reading session's time and pages to a book's stats
func (h *Handler) RecordReading(c *gin.Context) {
	var req struct {
		TimeSpent int64 `json:"time_spent" binding:"min=0"`
		PagesRead int   `json:"pages_read" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_spent and pages_read must not be negative"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	stats, err := h.db.GetStats(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to fetch stats")
		return
	}
	if stats == nil {
		stats = &models.ReadingStats{BookID: id}
	}
	stats.TotalTime += req.TimeSpent
	stats.PagesRead += req.PagesRead
	stats.LastReadAt = h.now().UTC()

	if err := h.db.SaveStats(ctx, stats); err != nil {
		respondError(c, err, "Failed to save stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stats saved", "stats": stats})
}
