package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/pdf"
	"github.com/justyntemme/folio/internal/storage"
)

// DefaultRecentLimit is the size of the "continue reading" shelf
const DefaultRecentLimit = 6

var (
	ErrTitleRequired = errors.New("title is required")
	ErrFileRequired  = errors.New("PDF file is required")
	ErrDuplicateBook = errors.New("this PDF is already in the library")
)

// Service implements the library view on top of the store and blob storage
type Service struct {
	db          *storage.Database
	files       *storage.FileStorage
	duplicates  *storage.DuplicateService
	recentLimit int
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRecentLimit changes how many books Recent returns by default
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithClock replaces the clock used for AddedAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a library service
func NewService(db *storage.Database, files *storage.FileStorage, opts ...Option) *Service {
	s := &Service{
		db:          db,
		files:       files,
		duplicates:  storage.NewDuplicateService(db, files),
		recentLimit: DefaultRecentLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportRequest is what the add-book dialog submits
type ImportRequest struct {
	Path     string
	FileName string // original name of an upload; defaults to the base of Path
	Title    string
	Author   string
	Genre    string
}

// Import copies a PDF into the library and records it as a new book
func (s *Service) Import(ctx context.Context, req ImportRequest) (*models.Book, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if req.Path == "" {
		return nil, ErrFileRequired
	}

	isPDF, err := pdf.IsPDF(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	if !isPDF {
		return nil, fmt.Errorf("%w: %s", pdf.ErrNotPDF, filepath.Base(req.Path))
	}

	check, err := s.duplicates.CheckForDuplicate(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if check.IsDuplicate {
		return nil, fmt.Errorf("%w (%q)", ErrDuplicateBook, check.Duplicates[0].Title)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.Path)
	}

	id := uuid.New().String()
	src, err := os.Open(req.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	filePath, size, err := s.files.SaveBook(id, src)
	if err != nil {
		return nil, fmt.Errorf("save book file: %w", err)
	}

	book := &models.Book{
		ID:       id,
		Title:    title,
		Author:   strings.TrimSpace(req.Author),
		Genre:    strings.TrimSpace(req.Genre),
		FileRef:  filePath,
		FileName: fileName,
		FileSize: size,
		FileHash: check.FileHash,
		AddedAt:  s.now().UTC(),
	}

	// Page count and cover are best effort; the reader learns the count on first render
	if meta, err := pdf.ParsePDF(filePath); err == nil {
		book.TotalPages = meta.PageCount
	}
	if cover, err := pdf.ExtractCover(filePath); err == nil {
		if coverPath, err := s.files.SaveCover(id, cover.Data, cover.Extension); err == nil {
			book.CoverRef = coverPath
		} else {
			log.Printf("Failed to save cover for %s: %v", id, err)
		}
	}

	if err := s.db.AddBook(ctx, book); err != nil {
		if cleanupErr := s.files.DeleteBook(id); cleanupErr != nil {
			log.Printf("Failed to clean up files for %s: %v", id, cleanupErr)
		}
		return nil, err
	}

	log.Printf("Imported %q (%s, %d pages)", book.Title, book.ID, book.TotalPages)
	return book, nil
}

// Books returns the whole library in the order books were added
func (s *Service) Books(ctx context.Context) ([]models.Book, error) {
	return s.db.GetAllBooks(ctx)
}

// Book returns a single book or storage.ErrBookNotFound
func (s *Service) Book(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.db.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrBookNotFound, id)
	}
	return book, nil
}

// BookUpdate holds the editable fields of a book. Nil fields are left alone.
type BookUpdate struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Genre  *string `json:"genre"`
}

// Update edits a book's descriptive fields
func (s *Service) Update(ctx context.Context, id string, upd BookUpdate) (*models.Book, error) {
	book, err := s.Book(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		book.Title = title
	}
	if upd.Author != nil {
		book.Author = strings.TrimSpace(*upd.Author)
	}
	if upd.Genre != nil {
		book.Genre = strings.TrimSpace(*upd.Genre)
	}

	if err := s.db.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// ToggleFavorite flips the favorite flag and returns the updated book
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.Book(ctx, id)
	if err != nil {
		return nil, err
	}

	book.IsFavorite = !book.IsFavorite
	if err := s.db.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book, its progress and bookmarks, then its files.
// Deleting a book that does not exist is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.db.DeleteBook(ctx, id); err != nil {
		return err
	}
	if err := s.files.DeleteBook(id); err != nil {
		log.Printf("Failed to delete files for %s: %v", id, err)
	}
	return nil
}

// Recent returns books that have been opened, most recent first. n <= 0 uses
// the configured limit.
func (s *Service) Recent(ctx context.Context, n int) ([]models.Book, error) {
	if n <= 0 {
		n = s.recentLimit
	}
	return s.db.GetRecentlyReadBooks(ctx, n)
}

// Favorites returns the favorite books
func (s *Service) Favorites(ctx context.Context) ([]models.Book, error) {
	return s.db.GetFavoriteBooks(ctx)
}

// Search filters the library by a case-insensitive substring of title, author
// or genre. An empty query returns every book.
func (s *Service) Search(ctx context.Context, query string) ([]models.Book, error) {
	books, err := s.db.GetAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(books, query), nil
}

// Filter applies the library search to an already loaded list
func Filter(books []models.Book, query string) []models.Book {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return books
	}

	matches := make([]models.Book, 0, len(books))
	for _, book := range books {
		if strings.Contains(strings.ToLower(book.Title), query) ||
			strings.Contains(strings.ToLower(book.Author), query) ||
			strings.Contains(strings.ToLower(book.Genre), query) {
			matches = append(matches, book)
		}
	}
	return matches
}

// ProgressMap returns the completion percentage of every book that has been opened
func (s *Service) ProgressMap(ctx context.Context) (map[string]int, error) {
	all, err := s.db.GetAllProgress(ctx)
	if err != nil {
		return nil, err
	}

	progress := make(map[string]int, len(all))
	for _, p := range all {
		progress[p.BookID] = p.Percentage
	}
	return progress, nil
}

// BackfillHashes hashes books imported before content hashing was recorded
func (s *Service) BackfillHashes(ctx context.Context) (*storage.HashProgress, error) {
	return s.duplicates.ComputeMissingHashes(ctx, 0)
}

// Duplicates lists groups of books that share the same file content
func (s *Service) Duplicates(ctx context.Context) ([]storage.DuplicateGroup, error) {
	return s.duplicates.FindDuplicates(ctx)
}

// MergeDuplicates keeps one book and deletes the copies that share its content
func (s *Service) MergeDuplicates(ctx context.Context, keepID string, deleteIDs []string) (*storage.MergeResult, error) {
	return s.duplicates.MergeDuplicates(ctx, keepID, deleteIDs)
}
