package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/folio/internal/library"
	"github.com/justyntemme/folio/internal/pdf"
	"github.com/justyntemme/folio/internal/storage"
)

// statusFor maps domain errors to HTTP status codes; anything else is a 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, library.ErrDuplicateBook):
		return http.StatusConflict
	case errors.Is(err, storage.ErrBookNotFound),
		errors.Is(err, storage.ErrCollectionNotFound),
		errors.Is(err, storage.ErrNothingToKeep):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidBook),
		errors.Is(err, storage.ErrInvalidColor),
		errors.Is(err, storage.ErrInvalidCollection),
		errors.Is(err, library.ErrTitleRequired),
		errors.Is(err, library.ErrFileRequired),
		errors.Is(err, pdf.ErrNotPDF):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Client errors carry the error text;
// server errors are logged and answered with msg only.
func respondError(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, msg, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
