package storage

import (
	"context"
	"database/sql"

	"github.com/justyntemme/folio/internal/models"
)

var statsColumns = []string{"book_id", "total_time", "pages_read", "last_read_at", "reading_speed"}

func scanStats(row rowScanner) (*models.ReadingStats, error) {
	var (
		s          models.ReadingStats
		lastReadAt int64
	)
	if err := row.Scan(&s.BookID, &s.TotalTime, &s.PagesRead, &lastReadAt, &s.ReadingSpeed); err != nil {
		return nil, err
	}
	s.LastReadAt = fromUnixNano(lastReadAt)
	return &s, nil
}

// SaveStats upserts the reading stats of an existing book. ReadingSpeed is
// derived from PagesRead and TotalTime; a zero LastReadAt is set to now.
func (d *Database) SaveStats(ctx context.Context, stats *models.ReadingStats) error {
	stats.ReadingSpeed = stats.Speed()
	if stats.LastReadAt.IsZero() {
		stats.LastReadAt = d.now()
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireBook(ctx, tx, stats.BookID); err != nil {
			return err
		}
		return upsert(ctx, tx, "stats", "book_id", statsColumns,
			stats.BookID, stats.TotalTime, stats.PagesRead, toUnixNano(stats.LastReadAt), stats.ReadingSpeed)
	})
}

// GetStats retrieves the reading stats of a book. Returns nil, nil if there are none.
func (d *Database) GetStats(ctx context.Context, bookID string) (*models.ReadingStats, error) {
	return queryOne(ctx, d.db, scanStats, selectSQL("stats", statsColumns, "book_id = ?"), bookID)
}

// GetAllStats returns the stats of every book
func (d *Database) GetAllStats(ctx context.Context) ([]models.ReadingStats, error) {
	return queryAll(ctx, d.db, scanStats, selectSQL("stats", statsColumns, "")+" ORDER BY rowid")
}
