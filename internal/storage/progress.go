package storage

import (
	"context"
	"database/sql"

	"github.com/justyntemme/folio/internal/models"
)

var progressColumns = []string{"book_id", "current_page", "total_pages", "percentage", "updated_at", "time_spent"}

func scanProgress(row rowScanner) (*models.ReadingProgress, error) {
	var (
		p         models.ReadingProgress
		updatedAt int64
	)
	if err := row.Scan(&p.BookID, &p.CurrentPage, &p.TotalPages, &p.Percentage, &updatedAt, &p.TimeSpent); err != nil {
		return nil, err
	}
	p.UpdatedAt = fromUnixNano(updatedAt)
	return &p, nil
}

// SaveProgress upserts the reading progress of a book and stamps the book's
// last-read time, both in one transaction. Percentage is always recomputed
// from CurrentPage and TotalPages; a zero UpdatedAt is set to now.
func (d *Database) SaveProgress(ctx context.Context, progress *models.ReadingProgress) error {
	now := d.now()
	progress.Percentage = models.Percentage(progress.CurrentPage, progress.TotalPages)
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = now
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		err := upsert(ctx, tx, "progress", "book_id", progressColumns,
			progress.BookID, progress.CurrentPage, progress.TotalPages, progress.Percentage,
			toUnixNano(progress.UpdatedAt), progress.TimeSpent)
		if err != nil {
			return err
		}

		// No-op when the book is gone
		_, err = tx.ExecContext(ctx, "UPDATE books SET last_read_at = ? WHERE id = ?", toUnixNano(now), progress.BookID)
		return err
	})
}

// GetProgress retrieves the reading progress of a book. Returns nil, nil if there is none.
func (d *Database) GetProgress(ctx context.Context, bookID string) (*models.ReadingProgress, error) {
	return queryOne(ctx, d.db, scanProgress, selectSQL("progress", progressColumns, "book_id = ?"), bookID)
}

// GetAllProgress returns the progress rows of every book
func (d *Database) GetAllProgress(ctx context.Context) ([]models.ReadingProgress, error) {
	return queryAll(ctx, d.db, scanProgress, selectSQL("progress", progressColumns, "")+" ORDER BY rowid")
}
