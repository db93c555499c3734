// Package reader holds the state of an open book: the current page, view
// settings and the time spent reading it.
package reader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/storage"
)

// Zoom bounds and step
const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	ZoomStep    = 0.1
	DefaultZoom = 1.0
)

var (
	ErrPageCountUnknown = errors.New("page count is not known yet")
	ErrInvalidPageCount = errors.New("page count must be positive")
	ErrInvalidTheme     = errors.New("unknown reading theme")
	ErrSessionClosed    = errors.New("reading session is closed")
)

// Theme is a reading color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
	ThemeNight Theme = "night"
)

// Themes lists the supported themes
var Themes = []Theme{ThemeLight, ThemeDark, ThemeSepia, ThemeNight}

// Valid reports whether t is a supported theme
func (t Theme) Valid() bool {
	return slices.Contains(Themes, t)
}

// Session is one reading of one book. It is not safe for concurrent use.
type Session struct {
	db  *storage.Database
	now func() time.Time

	book      *models.Book
	page      int
	total     int
	zoom      float64
	theme     Theme
	bookmarks []models.Bookmark

	openedAt   time.Time
	priorSpent int64
	priorStats models.ReadingStats
	visited    map[int]bool
	closed     bool
	final      *models.ReadingStats

	pageCount int
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces the clock used for time accounting
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithPageCount supplies the page count of a book that has never been
// rendered. Unlike SetPageCount nothing is written until the session saves.
func WithPageCount(n int) Option {
	return func(s *Session) {
		s.pageCount = n
	}
}

// Open starts a session on bookID, resuming at the saved page
func Open(ctx context.Context, db *storage.Database, bookID string, opts ...Option) (*Session, error) {
	s := &Session{
		db:      db,
		now:     time.Now,
		page:    1,
		zoom:    DefaultZoom,
		theme:   ThemeLight,
		visited: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	book, err := db.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrBookNotFound, bookID)
	}
	s.book = book
	s.total = book.TotalPages

	progress, err := db.GetProgress(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		s.page = max(progress.CurrentPage, 1)
		s.priorSpent = progress.TimeSpent
		if s.total == 0 {
			s.total = progress.TotalPages
		}
	}
	if s.total == 0 && s.pageCount > 0 {
		s.total = s.pageCount
	}
	if s.total > 0 {
		s.page = min(s.page, s.total)
	}

	if s.bookmarks, err = db.GetBookmarksByBook(ctx, bookID); err != nil {
		return nil, err
	}

	stats, err := db.GetStats(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		s.priorStats = *stats
	} else {
		s.priorStats = models.ReadingStats{BookID: bookID}
	}

	s.openedAt = s.now()
	s.visited[s.page] = true
	return s, nil
}

// Book returns the book being read
func (s *Session) Book() models.Book { return *s.book }

// Page returns the current page, starting at 1
func (s *Session) Page() int { return s.page }

// TotalPages returns the page count, 0 while unknown
func (s *Session) TotalPages() int { return s.total }

// Percentage returns how far into the book the current page is
func (s *Session) Percentage() int { return models.Percentage(s.page, s.total) }

// Zoom returns the current zoom factor
func (s *Session) Zoom() float64 { return s.zoom }

// Theme returns the current theme
func (s *Session) Theme() Theme { return s.theme }

// SetPageCount records the page count reported by the renderer. The book's
// TotalPages is persisted the first time it becomes known.
func (s *Session) SetPageCount(ctx context.Context, n int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if n <= 0 {
		return ErrInvalidPageCount
	}

	s.total = n
	s.page = min(s.page, n)

	if s.book.TotalPages == 0 {
		s.book.TotalPages = n
		if err := s.db.UpdateBook(ctx, s.book); err != nil {
			return err
		}
	}
	return s.saveProgress(ctx)
}

// Next moves one page forward, stopping at the last page
func (s *Session) Next(ctx context.Context) error {
	return s.GoTo(ctx, s.page+1)
}

// Prev moves one page back, stopping at the first page
func (s *Session) Prev(ctx context.Context) error {
	return s.GoTo(ctx, s.page-1)
}

// GoTo jumps to page, clamped to [1, TotalPages], and saves progress if the page changed
func (s *Session) GoTo(ctx context.Context, page int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.total <= 0 {
		return ErrPageCountUnknown
	}

	page = min(max(page, 1), s.total)
	if page == s.page {
		return nil
	}

	s.page = page
	s.visited[page] = true
	return s.saveProgress(ctx)
}

func (s *Session) elapsed() int64 {
	return int64(s.now().Sub(s.openedAt) / time.Second)
}

func (s *Session) saveProgress(ctx context.Context) error {
	if s.total <= 0 {
		return nil
	}
	return s.db.SaveProgress(ctx, &models.ReadingProgress{
		BookID:      s.book.ID,
		CurrentPage: s.page,
		TotalPages:  s.total,
		TimeSpent:   s.priorSpent + s.elapsed(),
	})
}

// ZoomIn enlarges the page by one step up to MaxZoom
func (s *Session) ZoomIn() float64 {
	s.zoom = math.Min(MaxZoom, roundZoom(s.zoom+ZoomStep))
	return s.zoom
}

// ZoomOut shrinks the page by one step down to MinZoom
func (s *Session) ZoomOut() float64 {
	s.zoom = math.Max(MinZoom, roundZoom(s.zoom-ZoomStep))
	return s.zoom
}

// keeps repeated steps on exact tenths
func roundZoom(z float64) float64 {
	return math.Round(z*10) / 10
}

// SetTheme changes the reading theme
func (s *Session) SetTheme(t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, t)
	}
	s.theme = t
	return nil
}

// Bookmarks returns the bookmarks of the book in the order they were added
func (s *Session) Bookmarks() []models.Bookmark {
	return slices.Clone(s.bookmarks)
}

// IsBookmarked reports whether the current page carries a bookmark
func (s *Session) IsBookmarked() bool {
	return slices.ContainsFunc(s.bookmarks, func(b models.Bookmark) bool {
		return b.Page == s.page
	})
}

// AddBookmark bookmarks the current page
func (s *Session) AddBookmark(ctx context.Context, note string) (*models.Bookmark, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	bookmark := &models.Bookmark{
		ID:        uuid.New().String(),
		BookID:    s.book.ID,
		Page:      s.page,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.AddBookmark(ctx, bookmark); err != nil {
		return nil, err
	}

	s.bookmarks = append(s.bookmarks, *bookmark)
	return bookmark, nil
}

// AddAnnotation attaches a note about text on the current page
func (s *Session) AddAnnotation(ctx context.Context, text, note string) (*models.Annotation, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	now := s.now().UTC()
	annotation := &models.Annotation{
		ID:        uuid.New().String(),
		BookID:    s.book.ID,
		Page:      s.page,
		Text:      text,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.AddAnnotation(ctx, annotation); err != nil {
		return nil, err
	}
	return annotation, nil
}

// AddHighlight marks text on the current page. An empty color means yellow.
func (s *Session) AddHighlight(ctx context.Context, text string, color models.HighlightColor) (*models.Highlight, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if color == "" {
		color = models.HighlightYellow
	}

	highlight := &models.Highlight{
		ID:        uuid.New().String(),
		BookID:    s.book.ID,
		Page:      s.page,
		Text:      text,
		Color:     color,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.AddHighlight(ctx, highlight); err != nil {
		return nil, err
	}
	return highlight, nil
}

// Stats returns the reading stats including the time spent in this session
func (s *Session) Stats() models.ReadingStats {
	if s.final != nil {
		return *s.final
	}

	stats := s.priorStats
	stats.TotalTime += s.elapsed()
	// The page the session opened on was already counted as read
	stats.PagesRead += len(s.visited) - 1
	stats.LastReadAt = s.now().UTC()
	stats.ReadingSpeed = stats.Speed()
	return stats
}

// EstimatedTimeLeft projects the time needed to finish the book at the
// current reading speed. ok is false while the speed is unknown.
func (s *Session) EstimatedTimeLeft() (d time.Duration, ok bool) {
	speed := s.Stats().ReadingSpeed
	if speed <= 0 || s.total <= 0 {
		return 0, false
	}
	remaining := float64(s.total - s.page)
	return time.Duration(remaining / speed * float64(time.Minute)).Round(time.Minute), true
}

// Close saves progress and folds the session's time and pages into the
// book's reading stats. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) (*models.ReadingStats, error) {
	if s.closed {
		return s.final, nil
	}

	if err := s.saveProgress(ctx); err != nil {
		return nil, err
	}

	stats := s.Stats()
	if err := s.db.SaveStats(ctx, &stats); err != nil {
		return nil, err
	}

	s.closed = true
	s.final = &stats
	return s.final, nil
}

// FormatDuration renders a duration the way the stats bar shows it, e.g. "1h 5m" or "12m"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
