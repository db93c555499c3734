package storage

import (
	"context"
	"database/sql"

	"github.com/justyntemme/folio/internal/models"
)

var bookmarkColumns = []string{"id", "book_id", "page", "note", "created_at"}

func scanBookmark(row rowScanner) (*models.Bookmark, error) {
	var (
		b         models.Bookmark
		createdAt int64
	)
	if err := row.Scan(&b.ID, &b.BookID, &b.Page, &b.Note, &createdAt); err != nil {
		return nil, err
	}
	b.CreatedAt = fromUnixNano(createdAt)
	return &b, nil
}

// AddBookmark inserts a bookmark for an existing book
func (d *Database) AddBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireBook(ctx, tx, bookmark.BookID); err != nil {
			return err
		}
		return insert(ctx, tx, "bookmarks", bookmarkColumns,
			bookmark.ID, bookmark.BookID, bookmark.Page, bookmark.Note, toUnixNano(bookmark.CreatedAt))
	})
}

// DeleteBookmark removes a bookmark
func (d *Database) DeleteBookmark(ctx context.Context, id string) error {
	return deleteByKey(ctx, d.db, "bookmarks", "id", id)
}

// GetBookmark retrieves a bookmark by ID. Returns nil, nil if there is none.
func (d *Database) GetBookmark(ctx context.Context, id string) (*models.Bookmark, error) {
	return queryOne(ctx, d.db, scanBookmark, selectSQL("bookmarks", bookmarkColumns, "id = ?"), id)
}

// GetBookmarksByBook returns the bookmarks of a book in insertion order
func (d *Database) GetBookmarksByBook(ctx context.Context, bookID string) ([]models.Bookmark, error) {
	return getAllFromIndex(ctx, d.db, "bookmarks", "by-book", bookmarkColumns, bookID, scanBookmark)
}

// GetAllBookmarks returns every bookmark
func (d *Database) GetAllBookmarks(ctx context.Context) ([]models.Bookmark, error) {
	return queryAll(ctx, d.db, scanBookmark, selectSQL("bookmarks", bookmarkColumns, "")+" ORDER BY rowid")
}
