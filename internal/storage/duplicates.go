package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/justyntemme/folio/internal/models"
)

// DuplicateService detects PDFs that were imported more than once
type DuplicateService struct {
	db    *Database
	files *FileStorage
	mu    sync.Mutex
}

// NewDuplicateService creates a new duplicate detection service
func NewDuplicateService(db *Database, files *FileStorage) *DuplicateService {
	return &DuplicateService{
		db:    db,
		files: files,
	}
}

// DuplicateCheckResult contains the result of checking for duplicates
type DuplicateCheckResult struct {
	IsDuplicate bool
	FileHash    string
	Duplicates  []models.Book
}

// CheckForDuplicate hashes a file and reports books that already hold the same content
func (s *DuplicateService) CheckForDuplicate(ctx context.Context, filePath string) (*DuplicateCheckResult, error) {
	hash, err := HashFile(filePath)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetBooksByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	return &DuplicateCheckResult{
		IsDuplicate: len(existing) > 0,
		FileHash:    hash,
		Duplicates:  existing,
	}, nil
}

// ComputeHashForBook computes and stores the hash for a single book
func (s *DuplicateService) ComputeHashForBook(ctx context.Context, book *models.Book) (string, error) {
	if _, err := os.Stat(book.FileRef); err != nil {
		return "", err
	}

	hash, err := HashFile(book.FileRef)
	if err != nil {
		return "", err
	}

	if err := s.db.UpdateBookFileHash(ctx, book.ID, hash); err != nil {
		return "", err
	}
	book.FileHash = hash

	return hash, nil
}

// HashProgress tracks the progress of bulk hash computation
type HashProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// ComputeMissingHashes hashes books imported without one, batchSize at a time.
// Books whose file cannot be read are counted as failed and skipped.
func (s *DuplicateService) ComputeMissingHashes(ctx context.Context, batchSize int) (*HashProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := s.db.CountBooksWithoutHash(ctx)
	if err != nil {
		return nil, err
	}

	progress := &HashProgress{Total: total}
	if total == 0 {
		return progress, nil
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	failed := make(map[string]bool)
	for {
		// Failed books stay unhashed, so widen the window past them
		books, err := s.db.GetBooksWithoutHash(ctx, batchSize+len(failed))
		if err != nil {
			return progress, err
		}

		attempted := 0
		for _, book := range books {
			if failed[book.ID] {
				continue
			}
			attempted++
			if _, err := s.ComputeHashForBook(ctx, &book); err != nil {
				log.Printf("Failed to compute hash for book %s: %v", book.ID, err)
				failed[book.ID] = true
				progress.Failed++
			} else {
				progress.Processed++
			}
		}

		if attempted == 0 {
			break
		}
	}

	return progress, nil
}

// DuplicateGroup is a set of books sharing one content hash
type DuplicateGroup struct {
	FileHash string        `json:"file_hash"`
	Books    []models.Book `json:"books"`
}

// FindDuplicates returns all duplicate groups
func (s *DuplicateService) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	hashes, err := s.db.GetDuplicateHashes(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]DuplicateGroup, 0, len(hashes))
	for _, hash := range hashes {
		books, err := s.db.GetBooksByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		groups = append(groups, DuplicateGroup{FileHash: hash, Books: books})
	}
	return groups, nil
}

// MergeResult contains the result of merging duplicates
type MergeResult struct {
	KeptBook     *models.Book `json:"kept_book"`
	DeletedBooks []string     `json:"deleted_books"`
	FilesRemoved int          `json:"files_removed"`
}

// ErrNothingToKeep is returned when the book to keep does not exist
var ErrNothingToKeep = errors.New("book to keep not found")

// MergeDuplicates keeps one book and deletes the others that share its hash.
// Books with a different hash are skipped.
func (s *DuplicateService) MergeDuplicates(ctx context.Context, keepBookID string, deleteBookIDs []string) (*MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keptBook, err := s.db.GetBook(ctx, keepBookID)
	if err != nil {
		return nil, err
	}
	if keptBook == nil {
		return nil, fmt.Errorf("%w: %s", ErrNothingToKeep, keepBookID)
	}

	result := &MergeResult{
		KeptBook:     keptBook,
		DeletedBooks: make([]string, 0),
	}

	for _, bookID := range deleteBookIDs {
		if bookID == keepBookID {
			continue
		}

		book, err := s.db.GetBook(ctx, bookID)
		if err != nil || book == nil {
			log.Printf("Failed to get book %s for deletion: %v", bookID, err)
			continue
		}

		if book.FileHash == "" || book.FileHash != keptBook.FileHash {
			log.Printf("Book %s has different hash, skipping", bookID)
			continue
		}

		if err := s.db.DeleteBook(ctx, bookID); err != nil {
			log.Printf("Failed to delete book %s from database: %v", bookID, err)
			continue
		}

		if err := s.files.DeleteBook(bookID); err != nil {
			log.Printf("Failed to delete files for %s: %v", bookID, err)
		} else {
			result.FilesRemoved++
		}

		result.DeletedBooks = append(result.DeletedBooks, bookID)
	}

	return result, nil
}
