package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justyntemme/folio/internal/models"
)

// CreateCollection creates a new collection
func (h *Handler) CreateCollection(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	collection := &models.Collection{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.db.AddCollection(c.Request.Context(), collection); err != nil {
		respondError(c, err, "Failed to create collection")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Collection created", "collection": collection})
}

// ListCollections returns all collections
func (h *Handler) ListCollections(c *gin.Context) {
	collections, err := h.db.GetAllCollections(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch collections")
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": collections, "count": len(collections)})
}

// GetCollection returns a collection with its books
func (h *Handler) GetCollection(c *gin.Context) {
	ctx := c.Request.Context()

	collection, err := h.db.GetCollection(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch collection")
		return
	}
	if collection == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
		return
	}

	books, err := h.db.GetBooksInCollection(ctx, collection.ID)
	if err != nil {
		respondError(c, err, "Failed to fetch collection books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"collection": collection, "books": books})
}

// UpdateCollection renames or recolors a collection
func (h *Handler) UpdateCollection(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	collection, err := h.db.GetCollection(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch collection")
		return
	}
	if collection == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
			return
		}
		collection.Name = *req.Name
	}
	if req.Description != nil {
		collection.Description = *req.Description
	}
	if req.Color != nil {
		collection.Color = *req.Color
	}

	if err := h.db.UpdateCollection(ctx, collection); err != nil {
		respondError(c, err, "Failed to update collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collection updated", "collection": collection})
}

// DeleteCollection deletes a collection. Member books are kept.
func (h *Handler) DeleteCollection(c *gin.Context) {
	if err := h.db.DeleteCollection(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collection deleted"})
}

// AddBookToCollection adds a book to a collection
func (h *Handler) AddBookToCollection(c *gin.Context) {
	if err := h.db.AddBookToCollection(c.Request.Context(), c.Param("bookId"), c.Param("id")); err != nil {
		respondError(c, err, "Failed to add book to collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book added to collection"})
}

// RemoveBookFromCollection removes a book from a collection
func (h *Handler) RemoveBookFromCollection(c *gin.Context) {
	if err := h.db.RemoveBookFromCollection(c.Request.Context(), c.Param("bookId"), c.Param("id")); err != nil {
		respondError(c, err, "Failed to remove book from collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book removed from collection"})
}
