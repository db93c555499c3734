package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/justyntemme/folio/internal/models"
)

var bookColumns = []string{
	"id", "title", "author", "cover_ref", "file_ref", "file_name", "file_size", "file_hash",
	"added_at", "last_read_at", "is_favorite", "total_pages", "genre", "collections",
}

func bookArgs(book *models.Book) ([]any, error) {
	collections, err := encodeIDs(book.Collections)
	if err != nil {
		return nil, err
	}

	var lastReadAt sql.NullInt64
	if book.LastReadAt != nil {
		lastReadAt = sql.NullInt64{Int64: toUnixNano(*book.LastReadAt), Valid: true}
	}

	return []any{
		book.ID, book.Title, book.Author, book.CoverRef, book.FileRef, book.FileName, book.FileSize, book.FileHash,
		toUnixNano(book.AddedAt), lastReadAt, boolToInt(book.IsFavorite), book.TotalPages, book.Genre, collections,
	}, nil
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		book        models.Book
		addedAt     int64
		lastReadAt  sql.NullInt64
		isFavorite  int
		collections string
	)
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.CoverRef, &book.FileRef, &book.FileName,
		&book.FileSize, &book.FileHash, &addedAt, &lastReadAt, &isFavorite, &book.TotalPages, &book.Genre, &collections)
	if err != nil {
		return nil, err
	}

	book.AddedAt = fromUnixNano(addedAt)
	if lastReadAt.Valid {
		t := fromUnixNano(lastReadAt.Int64)
		book.LastReadAt = &t
	}
	book.IsFavorite = isFavorite != 0
	if book.Collections, err = decodeIDs(collections); err != nil {
		return nil, fmt.Errorf("decode collections of %s: %w", book.ID, err)
	}
	return &book, nil
}

func validateBook(book *models.Book) error {
	if book.ID == "" || book.Title == "" {
		return ErrInvalidBook
	}
	return nil
}

// AddBook inserts a new book. Fails with ErrDuplicateKey if the id is taken.
func (d *Database) AddBook(ctx context.Context, book *models.Book) error {
	if err := validateBook(book); err != nil {
		return err
	}
	args, err := bookArgs(book)
	if err != nil {
		return err
	}
	return insert(ctx, d.db, "books", bookColumns, args...)
}

// UpdateBook inserts or overwrites a book
func (d *Database) UpdateBook(ctx context.Context, book *models.Book) error {
	return d.putBook(ctx, d.db, book)
}

func (d *Database) putBook(ctx context.Context, q querier, book *models.Book) error {
	if err := validateBook(book); err != nil {
		return err
	}
	args, err := bookArgs(book)
	if err != nil {
		return err
	}
	return upsert(ctx, q, "books", "id", bookColumns, args...)
}

// DeleteBook removes a book together with its reading progress and bookmarks,
// and recounts the collections it belonged to. Annotations, highlights and
// stats are left in place unless the database was opened WithAnnotationCascade.
// Deleting a missing book is not an error.
func (d *Database) DeleteBook(ctx context.Context, id string) error {
	tables := []struct{ table, key string }{
		{"books", "id"},
		{"progress", "book_id"},
		{"bookmarks", "book_id"},
	}
	if d.cascadeAnnotations {
		tables = append(tables,
			struct{ table, key string }{"annotations", "book_id"},
			struct{ table, key string }{"highlights", "book_id"},
			struct{ table, key string }{"stats", "book_id"},
		)
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		book, err := queryOne(ctx, tx, scanBook, selectSQL("books", bookColumns, "id = ?"), id)
		if err != nil {
			return err
		}

		for _, t := range tables {
			if err := deleteByKey(ctx, tx, t.table, t.key, id); err != nil {
				return err
			}
		}

		if book == nil {
			return nil
		}
		for _, collectionID := range book.Collections {
			if err := refreshBookCount(ctx, tx, collectionID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBook retrieves a book by ID. Returns nil, nil if there is none.
func (d *Database) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return queryOne(ctx, d.db, scanBook, selectSQL("books", bookColumns, "id = ?"), id)
}

// GetAllBooks returns every book in insertion order
func (d *Database) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	return queryAll(ctx, d.db, scanBook, selectSQL("books", bookColumns, "")+" ORDER BY rowid")
}

// GetFavoriteBooks returns the books flagged as favorite
func (d *Database) GetFavoriteBooks(ctx context.Context) ([]models.Book, error) {
	return getAllFromIndex(ctx, d.db, "books", "by-favorite", bookColumns, 1, scanBook)
}

// GetBooksByHash returns books whose file content hash equals hash
func (d *Database) GetBooksByHash(ctx context.Context, hash string) ([]models.Book, error) {
	return getAllFromIndex(ctx, d.db, "books", "by-hash", bookColumns, hash, scanBook)
}

// GetRecentlyReadBooks returns books that have been opened, most recent first.
// A limit <= 0 returns all of them.
func (d *Database) GetRecentlyReadBooks(ctx context.Context, limit int) ([]models.Book, error) {
	query := selectSQL("books", bookColumns, "last_read_at IS NOT NULL") + " ORDER BY last_read_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return queryAll(ctx, d.db, scanBook, query)
}

// GetBooksWithoutHash returns up to limit books imported before hashing existed
func (d *Database) GetBooksWithoutHash(ctx context.Context, limit int) ([]models.Book, error) {
	return queryAll(ctx, d.db, scanBook,
		selectSQL("books", bookColumns, "file_hash = '' AND file_ref != ''")+" ORDER BY rowid LIMIT ?", limit)
}

// CountBooksWithoutHash counts books that still need a content hash
func (d *Database) CountBooksWithoutHash(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books WHERE file_hash = '' AND file_ref != ''").Scan(&count)
	return count, err
}

// UpdateBookFileHash stores the content hash of a book's file
func (d *Database) UpdateBookFileHash(ctx context.Context, id, hash string) error {
	_, err := d.db.ExecContext(ctx, "UPDATE books SET file_hash = ? WHERE id = ?", hash, id)
	return err
}

// GetDuplicateHashes returns every content hash shared by more than one book
func (d *Database) GetDuplicateHashes(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT file_hash FROM books
		WHERE file_hash != ''
		GROUP BY file_hash
		HAVING COUNT(*) > 1
		ORDER BY file_hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}
