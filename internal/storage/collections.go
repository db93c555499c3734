package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/justyntemme/folio/internal/models"
)

var collectionColumns = []string{"id", "name", "description", "color", "created_at", "book_count"}

func scanCollection(row rowScanner) (*models.Collection, error) {
	var (
		c         models.Collection
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &createdAt, &c.BookCount); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnixNano(createdAt)
	return &c, nil
}

func collectionArgs(c *models.Collection) []any {
	return []any{c.ID, c.Name, c.Description, c.Color, toUnixNano(c.CreatedAt), c.BookCount}
}

func validateCollection(c *models.Collection) error {
	if c.ID == "" || strings.TrimSpace(c.Name) == "" {
		return ErrInvalidCollection
	}
	return nil
}

// AddCollection creates a new collection
func (d *Database) AddCollection(ctx context.Context, collection *models.Collection) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	return insert(ctx, d.db, "collections", collectionColumns, collectionArgs(collection)...)
}

// UpdateCollection inserts or overwrites a collection
func (d *Database) UpdateCollection(ctx context.Context, collection *models.Collection) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	return upsert(ctx, d.db, "collections", "id", collectionColumns, collectionArgs(collection)...)
}

// DeleteCollection removes a collection. Books keep the stale id in their
// Collections list; membership is not enforced.
func (d *Database) DeleteCollection(ctx context.Context, id string) error {
	return deleteByKey(ctx, d.db, "collections", "id", id)
}

// GetCollection retrieves a collection by ID. Returns nil, nil if there is none.
func (d *Database) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	return queryOne(ctx, d.db, scanCollection, selectSQL("collections", collectionColumns, "id = ?"), id)
}

// GetAllCollections returns every collection in insertion order
func (d *Database) GetAllCollections(ctx context.Context) ([]models.Collection, error) {
	return queryAll(ctx, d.db, scanCollection, selectSQL("collections", collectionColumns, "")+" ORDER BY rowid")
}

// GetBooksInCollection returns the books whose Collections list contains collectionID
func (d *Database) GetBooksInCollection(ctx context.Context, collectionID string) ([]models.Book, error) {
	query := selectSQL("books", bookColumns,
		"EXISTS (SELECT 1 FROM json_each(books.collections) WHERE json_each.value = ?)") + " ORDER BY rowid"
	return queryAll(ctx, d.db, scanBook, query, collectionID)
}

// AddBookToCollection adds collectionID to a book's Collections and refreshes
// the collection's cached book count
func (d *Database) AddBookToCollection(ctx context.Context, bookID, collectionID string) error {
	return d.editMembership(ctx, bookID, collectionID, func(ids []string) []string {
		if slices.Contains(ids, collectionID) {
			return ids
		}
		return append(ids, collectionID)
	})
}

// RemoveBookFromCollection removes collectionID from a book's Collections and
// refreshes the collection's cached book count
func (d *Database) RemoveBookFromCollection(ctx context.Context, bookID, collectionID string) error {
	return d.editMembership(ctx, bookID, collectionID, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == collectionID })
	})
}

func (d *Database) editMembership(ctx context.Context, bookID, collectionID string, edit func([]string) []string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		book, err := queryOne(ctx, tx, scanBook, selectSQL("books", bookColumns, "id = ?"), bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
		}

		collection, err := queryOne(ctx, tx, scanCollection, selectSQL("collections", collectionColumns, "id = ?"), collectionID)
		if err != nil {
			return err
		}
		if collection == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
		}

		book.Collections = edit(book.Collections)
		if err := d.putBook(ctx, tx, book); err != nil {
			return err
		}
		return refreshBookCount(ctx, tx, collectionID)
	})
}

// refreshBookCount recounts the books listing collectionID
func refreshBookCount(ctx context.Context, q querier, collectionID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE collections SET book_count = (
			SELECT COUNT(*) FROM books
			WHERE EXISTS (SELECT 1 FROM json_each(books.collections) WHERE json_each.value = ?)
		) WHERE id = ?`, collectionID, collectionID)
	return err
}
