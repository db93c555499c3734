package api

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justyntemme/folio/internal/library"
	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/storage"
)

// maxUploadSize caps PDF uploads at 200MB
const maxUploadSize = 200 * 1024 * 1024

// Handler contains all HTTP handlers
type Handler struct {
	db      *storage.Database
	files   *storage.FileStorage
	library *library.Service
	now     func() time.Time
}

// NewHandler creates a new handler instance
func NewHandler(db *storage.Database, files *storage.FileStorage, lib *library.Service) *Handler {
	return &Handler{
		db:      db,
		files:   files,
		library: lib,
		now:     time.Now,
	}
}

// HealthCheck returns server health status
func (h *Handler) HealthCheck(c *gin.Context) {
	version, err := h.db.Version(c.Request.Context())
	if err != nil {
		respondError(c, err, "Database unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "schema_version": version, "time": h.now().UTC()})
}

// UploadBook imports a PDF sent as multipart form data with title, author and genre fields
func (h *Handler) UploadBook(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PDF file is required"})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large (max 200MB)"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return
	}

	tmpDir, err := os.MkdirTemp("", "folio-upload-")
	if err != nil {
		respondError(c, err, "Failed to receive file")
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, uuid.New().String()+".pdf")
	if err := c.SaveUploadedFile(header, tmpPath); err != nil {
		respondError(c, err, "Failed to receive file")
		return
	}

	book, err := h.library.Import(c.Request.Context(), library.ImportRequest{
		Path:     tmpPath,
		FileName: filepath.Base(header.Filename),
		Title:    c.PostForm("title"),
		Author:   c.PostForm("author"),
		Genre:    c.PostForm("genre"),
	})
	if err != nil {
		respondError(c, err, "Failed to add book")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Book added successfully", "book": book})
}

// ListBooks returns the library, optionally filtered by ?q=
func (h *Handler) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()

	books, err := h.library.Search(ctx, c.Query("q"))
	if err != nil {
		respondError(c, err, "Failed to fetch books")
		return
	}

	progress, err := h.library.ProgressMap(ctx)
	if err != nil {
		respondError(c, err, "Failed to fetch progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books":    books,
		"count":    len(books),
		"progress": progress,
	})
}

// ListFavorites returns the favorite books
func (h *Handler) ListFavorites(c *gin.Context) {
	books, err := h.library.Favorites(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// ListRecent returns the "continue reading" shelf. ?limit= overrides the configured size.
func (h *Handler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	books, err := h.library.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to fetch recent books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetBook returns a single book by ID
func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.library.Book(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// UpdateBook edits title, author or genre
func (h *Handler) UpdateBook(c *gin.Context) {
	var req library.BookUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	book, err := h.library.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to update book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book updated", "book": book})
}

// ToggleFavorite flips the favorite flag of a book
func (h *Handler) ToggleFavorite(c *gin.Context) {
	book, err := h.library.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to update favorite")
		return
	}

	message := "Removed from favorites"
	if book.IsFavorite {
		message = "Added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "book": book})
}

// DeleteBook removes a book, its progress, bookmarks and files
func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

// GetBookFile serves the PDF for the reader
func (h *Handler) GetBookFile(c *gin.Context) {
	book, err := h.library.Book(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch book")
		return
	}

	if _, err := os.Stat(book.FileRef); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book file not found"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "inline; filename=\""+book.FileName+"\"")
	c.File(book.FileRef)
}

// GetBookCover serves the cover image extracted at import
func (h *Handler) GetBookCover(c *gin.Context) {
	book, err := h.library.Book(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch book")
		return
	}
	coverPath := book.CoverRef
	if coverPath == "" {
		coverPath = h.files.GetCoverPath(book.ID)
	}
	if coverPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cover not found"})
		return
	}
	c.File(coverPath)
}

// GetProgress returns the saved reading progress of a book
func (h *Handler) GetProgress(c *gin.Context) {
	progress, err := h.db.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch progress")
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No progress saved"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// SaveProgress records the current page. The percentage is computed server side.
func (h *Handler) SaveProgress(c *gin.Context) {
	var req struct {
		CurrentPage int   `json:"current_page" binding:"required,min=1"`
		TotalPages  int   `json:"total_pages" binding:"required,min=1"`
		TimeSpent   int64 `json:"time_spent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_page and total_pages are required"})
		return
	}
	if req.CurrentPage > req.TotalPages {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_page is past the last page"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.library.Book(ctx, id); err != nil {
		respondError(c, err, "Failed to fetch book")
		return
	}

	progress := &models.ReadingProgress{
		BookID:      id,
		CurrentPage: req.CurrentPage,
		TotalPages:  req.TotalPages,
		TimeSpent:   req.TimeSpent,
	}
	if err := h.db.SaveProgress(ctx, progress); err != nil {
		respondError(c, err, "Failed to save progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress saved", "progress": progress})
}

// ListBookmarks returns the bookmarks of a book
func (h *Handler) ListBookmarks(c *gin.Context) {
	bookmarks, err := h.db.GetBookmarksByBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch bookmarks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks, "count": len(bookmarks)})
}

// CreateBookmark bookmarks a page
func (h *Handler) CreateBookmark(c *gin.Context) {
	var req struct {
		Page int    `json:"page" binding:"required,min=1"`
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page is required"})
		return
	}

	bookmark := &models.Bookmark{
		ID:        uuid.New().String(),
		BookID:    c.Param("id"),
		Page:      req.Page,
		Note:      req.Note,
		CreatedAt: h.now().UTC(),
	}
	if err := h.db.AddBookmark(c.Request.Context(), bookmark); err != nil {
		respondError(c, err, "Failed to add bookmark")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Bookmark added!", "bookmark": bookmark})
}

// DeleteBookmark removes a bookmark
func (h *Handler) DeleteBookmark(c *gin.Context) {
	if err := h.db.DeleteBookmark(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete bookmark")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted"})
}

// GetDuplicates lists groups of books with identical content
func (h *Handler) GetDuplicates(c *gin.Context) {
	groups, err := h.library.Duplicates(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to find duplicates")
		return
	}

	response := make([]gin.H, 0, len(groups))
	for _, g := range groups {
		response = append(response, gin.H{
			"file_hash": g.FileHash,
			"count":     len(g.Books),
			"books":     g.Books,
		})
	}

	c.JSON(http.StatusOK, gin.H{"groups": response, "count": len(groups)})
}

// ComputeHashes hashes books imported without a content hash
func (h *Handler) ComputeHashes(c *gin.Context) {
	progress, err := h.library.BackfillHashes(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute hashes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Hash computation complete",
		"total":     progress.Total,
		"processed": progress.Processed,
		"failed":    progress.Failed,
	})
}

// MergeDuplicates keeps one book of a duplicate group and deletes the rest
func (h *Handler) MergeDuplicates(c *gin.Context) {
	var req struct {
		KeepID    string   `json:"keep_id" binding:"required"`
		DeleteIDs []string `json:"delete_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keep_id and delete_ids are required"})
		return
	}

	result, err := h.library.MergeDuplicates(c.Request.Context(), req.KeepID, req.DeleteIDs)
	if err != nil {
		respondError(c, err, "Failed to merge duplicates")
		return
	}

	log.Printf("Merged duplicates of %s: removed %v", req.KeepID, result.DeletedBooks)
	c.JSON(http.StatusOK, gin.H{
		"message":       "Duplicates merged successfully",
		"kept_book":     result.KeptBook,
		"deleted_books": result.DeletedBooks,
		"files_removed": result.FilesRemoved,
	})
}
