package models

import "time"

// HighlightColor is the color tag of a highlight
type HighlightColor string

// Highlight colors
const (
	HighlightYellow HighlightColor = "yellow"
	HighlightGreen  HighlightColor = "green"
	HighlightBlue   HighlightColor = "blue"
	HighlightPink   HighlightColor = "pink"
	HighlightPurple HighlightColor = "purple"
)

// HighlightColors lists every valid color in display order
var HighlightColors = []HighlightColor{
	HighlightYellow,
	HighlightGreen,
	HighlightBlue,
	HighlightPink,
	HighlightPurple,
}

// Valid reports whether c is one of the known colors
func (c HighlightColor) Valid() bool {
	for _, known := range HighlightColors {
		if c == known {
			return true
		}
	}
	return false
}

// Highlight is a colored passage of text on a page
type Highlight struct {
	ID        string         `json:"id"`
	BookID    string         `json:"book_id"`
	Page      int            `json:"page"`
	Text      string         `json:"text"`
	Color     HighlightColor `json:"color"`
	CreatedAt time.Time      `json:"created_at"`
}
