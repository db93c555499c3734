package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/justyntemme/folio/internal/models"
)

var highlightColumns = []string{"id", "book_id", "page", "text", "color", "created_at"}

func scanHighlight(row rowScanner) (*models.Highlight, error) {
	var (
		h         models.Highlight
		color     string
		createdAt int64
	)
	if err := row.Scan(&h.ID, &h.BookID, &h.Page, &h.Text, &color, &createdAt); err != nil {
		return nil, err
	}
	h.Color = models.HighlightColor(color)
	h.CreatedAt = fromUnixNano(createdAt)
	return &h, nil
}

// AddHighlight inserts a highlight for an existing book
func (d *Database) AddHighlight(ctx context.Context, highlight *models.Highlight) error {
	if !highlight.Color.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidColor, highlight.Color)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireBook(ctx, tx, highlight.BookID); err != nil {
			return err
		}
		return insert(ctx, tx, "highlights", highlightColumns,
			highlight.ID, highlight.BookID, highlight.Page, highlight.Text, string(highlight.Color), toUnixNano(highlight.CreatedAt))
	})
}

// DeleteHighlight removes a highlight
func (d *Database) DeleteHighlight(ctx context.Context, id string) error {
	return deleteByKey(ctx, d.db, "highlights", "id", id)
}

// GetHighlightsByBook returns the highlights of a book in insertion order
func (d *Database) GetHighlightsByBook(ctx context.Context, bookID string) ([]models.Highlight, error) {
	return getAllFromIndex(ctx, d.db, "highlights", "by-book", highlightColumns, bookID, scanHighlight)
}
