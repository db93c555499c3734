package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justyntemme/folio/internal/models"
)

// ListAnnotations returns the notes of a book
func (h *Handler) ListAnnotations(c *gin.Context) {
	annotations, err := h.db.GetAnnotationsByBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch annotations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"annotations": annotations, "count": len(annotations)})
}

// CreateAnnotation attaches a note to a passage of a book
func (h *Handler) CreateAnnotation(c *gin.Context) {
	var req struct {
		Page int    `json:"page" binding:"required,min=1"`
		Text string `json:"text"`
		Note string `json:"note" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and note are required"})
		return
	}

	now := h.now().UTC()
	annotation := &models.Annotation{
		ID:        uuid.New().String(),
		BookID:    c.Param("id"),
		Page:      req.Page,
		Text:      req.Text,
		Note:      req.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.db.AddAnnotation(c.Request.Context(), annotation); err != nil {
		respondError(c, err, "Failed to create annotation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Annotation created", "annotation": annotation})
}

// UpdateAnnotation edits the quoted text or the note of an annotation
func (h *Handler) UpdateAnnotation(c *gin.Context) {
	var req struct {
		Text *string `json:"text"`
		Note *string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	annotation, err := h.db.GetAnnotation(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch annotation")
		return
	}
	if annotation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Annotation not found"})
		return
	}

	if req.Text != nil {
		annotation.Text = *req.Text
	}
	if req.Note != nil {
		annotation.Note = *req.Note
	}

	if err := h.db.UpdateAnnotation(ctx, annotation); err != nil {
		respondError(c, err, "Failed to update annotation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Annotation updated", "annotation": annotation})
}

// DeleteAnnotation removes an annotation
func (h *Handler) DeleteAnnotation(c *gin.Context) {
	if err := h.db.DeleteAnnotation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete annotation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Annotation deleted"})
}

// ListHighlights returns the highlights of a book
func (h *Handler) ListHighlights(c *gin.Context) {
	highlights, err := h.db.GetHighlightsByBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch highlights")
		return
	}
	c.JSON(http.StatusOK, gin.H{"highlights": highlights, "count": len(highlights)})
}

// CreateHighlight highlights a passage. Color defaults to yellow.
func (h *Handler) CreateHighlight(c *gin.Context) {
	var req struct {
		Page  int                   `json:"page" binding:"required,min=1"`
		Text  string                `json:"text" binding:"required"`
		Color models.HighlightColor `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and text are required"})
		return
	}
	if req.Color == "" {
		req.Color = models.HighlightYellow
	}

	highlight := &models.Highlight{
		ID:        uuid.New().String(),
		BookID:    c.Param("id"),
		Page:      req.Page,
		Text:      req.Text,
		Color:     req.Color,
		CreatedAt: h.now().UTC(),
	}
	if err := h.db.AddHighlight(c.Request.Context(), highlight); err != nil {
		respondError(c, err, "Failed to create highlight")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Highlight created", "highlight": highlight})
}

// DeleteHighlight removes a highlight
func (h *Handler) DeleteHighlight(c *gin.Context) {
	if err := h.db.DeleteHighlight(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete highlight")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Highlight deleted"})
}
