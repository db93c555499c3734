package storage

import (
	"context"
	"database/sql"

	"github.com/justyntemme/folio/internal/models"
)

var annotationColumns = []string{"id", "book_id", "page", "text", "note", "created_at", "updated_at"}

func scanAnnotation(row rowScanner) (*models.Annotation, error) {
	var (
		a                    models.Annotation
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.BookID, &a.Page, &a.Text, &a.Note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnixNano(createdAt)
	a.UpdatedAt = fromUnixNano(updatedAt)
	return &a, nil
}

func annotationArgs(a *models.Annotation) []any {
	return []any{a.ID, a.BookID, a.Page, a.Text, a.Note, toUnixNano(a.CreatedAt), toUnixNano(a.UpdatedAt)}
}

// AddAnnotation inserts a note for an existing book. A zero UpdatedAt takes CreatedAt.
func (d *Database) AddAnnotation(ctx context.Context, annotation *models.Annotation) error {
	if annotation.UpdatedAt.IsZero() {
		annotation.UpdatedAt = annotation.CreatedAt
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireBook(ctx, tx, annotation.BookID); err != nil {
			return err
		}
		return insert(ctx, tx, "annotations", annotationColumns, annotationArgs(annotation)...)
	})
}

// UpdateAnnotation inserts or overwrites a note and stamps UpdatedAt with the current time
func (d *Database) UpdateAnnotation(ctx context.Context, annotation *models.Annotation) error {
	annotation.UpdatedAt = d.now()
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = annotation.UpdatedAt
	}
	return upsert(ctx, d.db, "annotations", "id", annotationColumns, annotationArgs(annotation)...)
}

// DeleteAnnotation removes a note
func (d *Database) DeleteAnnotation(ctx context.Context, id string) error {
	return deleteByKey(ctx, d.db, "annotations", "id", id)
}

// GetAnnotation retrieves a note by ID. Returns nil, nil if there is none.
func (d *Database) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	return queryOne(ctx, d.db, scanAnnotation, selectSQL("annotations", annotationColumns, "id = ?"), id)
}

// GetAnnotationsByBook returns the notes of a book in insertion order
func (d *Database) GetAnnotationsByBook(ctx context.Context, bookID string) ([]models.Annotation, error) {
	return getAllFromIndex(ctx, d.db, "annotations", "by-book", annotationColumns, bookID, scanAnnotation)
}
