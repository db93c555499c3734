package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a gin engine with logging and recovery
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	r.GET("/health", h.HealthCheck)

	apiGroup := r.Group("/api")
	{
		// Books
		apiGroup.GET("/books", h.ListBooks)
		apiGroup.POST("/books", h.UploadBook)
		apiGroup.GET("/books/favorites", h.ListFavorites)
		apiGroup.GET("/books/recent", h.ListRecent)
		apiGroup.GET("/books/:id", h.GetBook)
		apiGroup.PUT("/books/:id", h.UpdateBook)
		apiGroup.DELETE("/books/:id", h.DeleteBook)
		apiGroup.POST("/books/:id/favorite", h.ToggleFavorite)
		apiGroup.GET("/books/:id/file", h.GetBookFile)
		apiGroup.GET("/books/:id/cover", h.GetBookCover)

		// Reading progress
		apiGroup.GET("/books/:id/progress", h.GetProgress)
		apiGroup.POST("/books/:id/progress", h.SaveProgress)

		// Bookmarks
		apiGroup.GET("/books/:id/bookmarks", h.ListBookmarks)
		apiGroup.POST("/books/:id/bookmarks", h.CreateBookmark)
		apiGroup.DELETE("/bookmarks/:id", h.DeleteBookmark)

		// Annotations and highlights
		apiGroup.GET("/books/:id/annotations", h.ListAnnotations)
		apiGroup.POST("/books/:id/annotations", h.CreateAnnotation)
		apiGroup.PUT("/annotations/:id", h.UpdateAnnotation)
		apiGroup.DELETE("/annotations/:id", h.DeleteAnnotation)
		apiGroup.GET("/books/:id/highlights", h.ListHighlights)
		apiGroup.POST("/books/:id/highlights", h.CreateHighlight)
		apiGroup.DELETE("/highlights/:id", h.DeleteHighlight)

		// Collections
		apiGroup.GET("/collections", h.ListCollections)
		apiGroup.POST("/collections", h.CreateCollection)
		apiGroup.GET("/collections/:id", h.GetCollection)
		apiGroup.PUT("/collections/:id", h.UpdateCollection)
		apiGroup.DELETE("/collections/:id", h.DeleteCollection)
		apiGroup.POST("/collections/:id/books/:bookId", h.AddBookToCollection)
		apiGroup.DELETE("/collections/:id/books/:bookId", h.RemoveBookFromCollection)

		// Stats
		apiGroup.GET("/stats", h.GetAllStats)
		apiGroup.GET("/books/:id/stats", h.GetBookStats)
		apiGroup.POST("/books/:id/stats", h.RecordReading)

		// Duplicates
		apiGroup.GET("/duplicates", h.GetDuplicates)
		apiGroup.POST("/duplicates/hashes", h.ComputeHashes)
		apiGroup.POST("/duplicates/merge", h.MergeDuplicates)
	}

	return r
}

// corsMiddleware lets a local web client on another port call the API
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
