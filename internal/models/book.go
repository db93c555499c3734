package models

import (
	"math"
	"time"
)

// Book represents a PDF book in the library
type Book struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	CoverRef    string     `json:"cover,omitempty"`
	FileRef     string     `json:"file_url"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size,omitempty"`
	FileHash    string     `json:"file_hash,omitempty"`
	AddedAt     time.Time  `json:"added_at"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`
	IsFavorite  bool       `json:"is_favorite"`
	TotalPages  int        `json:"total_pages,omitempty"` // 0 until the first render
	Genre       string     `json:"genre,omitempty"`
	Collections []string   `json:"collections,omitempty"`
}

// ReadingProgress tracks where the reader left off in a book.
// There is at most one per book.
type ReadingProgress struct {
	BookID      string    `json:"book_id"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	Percentage  int       `json:"percentage"`
	UpdatedAt   time.Time `json:"updated_at"`
	TimeSpent   int64     `json:"time_spent,omitempty"` // seconds
}

// Percentage returns round(current/total*100), or 0 when total is unknown
func Percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(total) * 100))
}

// Bookmark marks a page in a book
type Bookmark struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Page      int       `json:"page"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Annotation is a free-text note attached to a quoted passage
type Annotation struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Page      int       `json:"page"`
	Text      string    `json:"text"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Collection represents a user-defined collection of books
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	BookCount   int       `json:"book_count,omitempty"`
}

// ReadingStats accumulates reading time and speed for a book
type ReadingStats struct {
	BookID       string    `json:"book_id"`
	TotalTime    int64     `json:"total_time"` // seconds
	PagesRead    int       `json:"pages_read"`
	LastReadAt   time.Time `json:"last_read_at"`
	ReadingSpeed float64   `json:"reading_speed"` // pages per minute
}

// Speed derives pages per minute from the accumulated totals
func (s *ReadingStats) Speed() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.PagesRead) / (float64(s.TotalTime) / 60)
}
