package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/folio/internal/models"
)

func setupTestDB(t *testing.T, opts ...Option) (*Database, func()) {
	dbPath := filepath.Join(t.TempDir(), "folio-test.db")

	db, err := NewDatabase(dbPath, opts...)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

// ts returns a fixed UTC timestamp offset from a reference instant
func ts(offset time.Duration) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
}

func testBook(id string) *models.Book {
	return &models.Book{
		ID:         id,
		Title:      "Title " + id,
		Author:     "Author",
		FileRef:    "/data/books/" + id + ".pdf",
		FileName:   id + ".pdf",
		AddedAt:    ts(0),
		IsFavorite: false,
	}
}

func TestCreateAndGetBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	lastRead := ts(time.Hour)
	book := &models.Book{
		ID:          "book-1",
		Title:       "Test Book",
		Author:      "Test Author",
		CoverRef:    "/covers/book-1.jpg",
		FileRef:     "/books/book-1.pdf",
		FileName:    "test.pdf",
		FileSize:    2048,
		FileHash:    "abc",
		AddedAt:     ts(0),
		LastReadAt:  &lastRead,
		IsFavorite:  true,
		TotalPages:  320,
		Genre:       "Fiction",
		Collections: []string{"c1", "c2"},
	}

	require.NoError(t, db.AddBook(ctx, book))

	retrieved, err := db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, retrieved)
}

func TestBookTimestampsRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		now := time.Now().UTC()
		book := testBook(fmt.Sprintf("b%d", i))
		book.AddedAt = now
		book.LastReadAt = &now
		require.NoError(t, db.AddBook(ctx, book))

		got, err := db.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, book, got)
		assert.True(t, got.AddedAt.Equal(now), "added %v, read back %v", now, got.AddedAt)
	}
}

func TestSaveProgressNeverStampsBeforeCall(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	for i := 0; i < 100; i++ {
		before := time.Now()
		require.NoError(t, db.SaveProgress(ctx, &models.ReadingProgress{BookID: "b1", CurrentPage: i + 1, TotalPages: 100}))

		book, err := db.GetBook(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, book.LastReadAt)
		require.False(t, book.LastReadAt.Before(before), "last read %v is before %v", book.LastReadAt, before)
	}
}

func TestGetBookMissingIsAbsent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	book, err := db.GetBook(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestAddBookDuplicateKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	err := db.AddBook(ctx, testBook("b1"))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAddBookValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := testBook("b1")
	book.Title = ""
	assert.ErrorIs(t, db.AddBook(ctx, book), ErrInvalidBook)

	book = testBook("")
	assert.ErrorIs(t, db.AddBook(ctx, book), ErrInvalidBook)
}

func TestUpdateBookUpserts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Insert through update
	book := testBook("b1")
	require.NoError(t, db.UpdateBook(ctx, book))

	book.Title = "Renamed"
	require.NoError(t, db.UpdateBook(ctx, book))

	retrieved, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", retrieved.Title)

	all, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetAllBooksInsertionOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"z", "a", "m"} {
		require.NoError(t, db.AddBook(ctx, testBook(id)))
	}

	// An update must not move the row
	a := testBook("a")
	a.Title = "changed"
	require.NoError(t, db.UpdateBook(ctx, a))

	books, err := db.GetAllBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "z", books[0].ID)
	assert.Equal(t, "a", books[1].ID)
	assert.Equal(t, "m", books[2].ID)
}

func TestDeleteBookIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.DeleteBook(ctx, "b1"))
	require.NoError(t, db.DeleteBook(ctx, "b1"))
	require.NoError(t, db.DeleteBook(ctx, "never-existed"))

	book, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestFavoriteToggleScenario(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := &models.Book{ID: "b1", Title: "T", AddedAt: ts(0), IsFavorite: false}
	require.NoError(t, db.AddBook(ctx, book))

	favorites, err := db.GetFavoriteBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, favorites)

	book.IsFavorite = !book.IsFavorite
	require.NoError(t, db.UpdateBook(ctx, book))

	favorites, err = db.GetFavoriteBooks(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "b1", favorites[0].ID)
}

func TestGetFavoriteBooksMatchesFlag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	want := map[string]bool{}
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		book := testBook(id)
		book.IsFavorite = i%3 == 0
		if book.IsFavorite {
			want[id] = true
		}
		require.NoError(t, db.AddBook(ctx, book))
	}

	favorites, err := db.GetFavoriteBooks(ctx)
	require.NoError(t, err)

	got := map[string]bool{}
	for _, b := range favorites {
		assert.True(t, b.IsFavorite)
		got[b.ID] = true
	}
	assert.Equal(t, want, got)
}

func TestSaveProgressStampsBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	before := time.Now()
	progress := &models.ReadingProgress{BookID: "b1", CurrentPage: 10, TotalPages: 40}
	require.NoError(t, db.SaveProgress(ctx, progress))

	book, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, book.LastReadAt)
	assert.False(t, book.LastReadAt.Before(before))

	saved, err := db.GetProgress(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 10, saved.CurrentPage)
	assert.Equal(t, 25, saved.Percentage)
}

func TestSaveProgressRecomputesPercentage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	for _, tc := range []struct{ current, total int }{{1, 3}, {2, 3}, {7, 7}, {3, 0}, {99, 1000}} {
		// A caller-supplied percentage is ignored
		p := &models.ReadingProgress{BookID: "b1", CurrentPage: tc.current, TotalPages: tc.total, Percentage: 42}
		require.NoError(t, db.SaveProgress(ctx, p))

		saved, err := db.GetProgress(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, models.Percentage(saved.CurrentPage, saved.TotalPages), saved.Percentage)
	}
}

func TestSaveProgressWithoutBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.SaveProgress(ctx, &models.ReadingProgress{BookID: "ghost", CurrentPage: 1, TotalPages: 2}))

	book, err := db.GetBook(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, book)

	progress, err := db.GetProgress(ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, progress)
}

func TestSaveProgressUsesClock(t *testing.T) {
	fixed := ts(48 * time.Hour)
	db, cleanup := setupTestDB(t, WithClock(func() time.Time { return fixed }))
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.SaveProgress(ctx, &models.ReadingProgress{BookID: "b1", CurrentPage: 1, TotalPages: 5, TimeSpent: 90}))

	book, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, fixed, *book.LastReadAt)

	progress, err := db.GetProgress(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, fixed, progress.UpdatedAt)
	assert.Equal(t, int64(90), progress.TimeSpent)
}

func TestBookmarkScenario(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, &models.Book{ID: "b1", Title: "T", AddedAt: ts(0)}))

	bookmark := models.Bookmark{ID: "m1", BookID: "b1", Page: 5, CreatedAt: ts(time.Minute)}
	require.NoError(t, db.AddBookmark(ctx, &bookmark))

	bookmarks, err := db.GetBookmarksByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []models.Bookmark{bookmark}, bookmarks)

	require.NoError(t, db.DeleteBook(ctx, "b1"))

	bookmarks, err = db.GetBookmarksByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestAddBookmarkRequiresBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.AddBookmark(context.Background(), &models.Bookmark{ID: "m1", BookID: "missing", Page: 1, CreatedAt: ts(0)})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookmarkDuplicateAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.AddBook(ctx, testBook("b2")))

	m1 := &models.Bookmark{ID: "m1", BookID: "b1", Page: 1, CreatedAt: ts(0)}
	m2 := &models.Bookmark{ID: "m2", BookID: "b2", Page: 2, Note: "later", CreatedAt: ts(0)}
	require.NoError(t, db.AddBookmark(ctx, m1))
	require.NoError(t, db.AddBookmark(ctx, m2))
	assert.ErrorIs(t, db.AddBookmark(ctx, m1), ErrDuplicateKey)

	all, err := db.GetAllBookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, db.DeleteBookmark(ctx, "m1"))
	require.NoError(t, db.DeleteBookmark(ctx, "m1"))

	gone, err := db.GetBookmark(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := db.GetBookmark(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, m2, kept)
}

// Pins current behavior: DeleteBook does not cascade to annotations and
// highlights. Flip this test if the cascade becomes the default.
func TestDeleteBookLeavesAnnotationsAndHighlights(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	seedBookWithChildren(t, db, "b1")
	require.NoError(t, db.DeleteBook(ctx, "b1"))

	progress, err := db.GetProgress(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, progress)

	bookmarks, err := db.GetBookmarksByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, bookmarks)

	highlights, err := db.GetHighlightsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, highlights, 1, "highlights are orphaned, not cascaded")

	annotations, err := db.GetAnnotationsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, annotations, 1, "annotations are orphaned, not cascaded")
}

func TestDeleteBookWithAnnotationCascade(t *testing.T) {
	db, cleanup := setupTestDB(t, WithAnnotationCascade())
	defer cleanup()
	ctx := context.Background()

	seedBookWithChildren(t, db, "b1")
	require.NoError(t, db.DeleteBook(ctx, "b1"))

	highlights, err := db.GetHighlightsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, highlights)

	annotations, err := db.GetAnnotationsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, annotations)

	stats, err := db.GetStats(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func seedBookWithChildren(t *testing.T, db *Database, bookID string) {
	ctx := context.Background()
	require.NoError(t, db.AddBook(ctx, testBook(bookID)))
	require.NoError(t, db.SaveProgress(ctx, &models.ReadingProgress{BookID: bookID, CurrentPage: 3, TotalPages: 9}))
	require.NoError(t, db.AddBookmark(ctx, &models.Bookmark{ID: bookID + "-m", BookID: bookID, Page: 3, CreatedAt: ts(0)}))
	require.NoError(t, db.AddAnnotation(ctx, &models.Annotation{ID: bookID + "-a", BookID: bookID, Page: 3, Text: "q", Note: "n", CreatedAt: ts(0)}))
	require.NoError(t, db.AddHighlight(ctx, &models.Highlight{ID: bookID + "-h", BookID: bookID, Page: 3, Text: "q", Color: models.HighlightPink, CreatedAt: ts(0)}))
	require.NoError(t, db.SaveStats(ctx, &models.ReadingStats{BookID: bookID, TotalTime: 60, PagesRead: 2}))
}

func TestDeleteBookKeepsOtherBooks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	seedBookWithChildren(t, db, "b1")
	seedBookWithChildren(t, db, "b2")
	require.NoError(t, db.DeleteBook(ctx, "b1"))

	progress, err := db.GetProgress(ctx, "b2")
	require.NoError(t, err)
	assert.NotNil(t, progress)

	bookmarks, err := db.GetBookmarksByBook(ctx, "b2")
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)
}

func TestAnnotations(t *testing.T) {
	now := ts(24 * time.Hour)
	db, cleanup := setupTestDB(t, WithClock(func() time.Time { return now }))
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	a := &models.Annotation{ID: "a1", BookID: "b1", Page: 4, Text: "quoted", Note: "thought", CreatedAt: ts(0)}
	require.NoError(t, db.AddAnnotation(ctx, a))
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.ErrorIs(t, db.AddAnnotation(ctx, a), ErrDuplicateKey)

	a.Note = "second thought"
	require.NoError(t, db.UpdateAnnotation(ctx, a))

	saved, err := db.GetAnnotation(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "second thought", saved.Note)
	assert.Equal(t, ts(0), saved.CreatedAt)
	assert.Equal(t, now, saved.UpdatedAt)

	byBook, err := db.GetAnnotationsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, byBook, 1)

	require.NoError(t, db.DeleteAnnotation(ctx, "a1"))
	require.NoError(t, db.DeleteAnnotation(ctx, "a1"))

	byBook, err = db.GetAnnotationsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, byBook)

	assert.ErrorIs(t, db.AddAnnotation(ctx, &models.Annotation{ID: "a2", BookID: "nope", CreatedAt: ts(0)}), ErrBookNotFound)
}

func TestHighlights(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))

	h := models.Highlight{ID: "h1", BookID: "b1", Page: 2, Text: "text", Color: models.HighlightBlue, CreatedAt: ts(0)}
	require.NoError(t, db.AddHighlight(ctx, &h))

	bad := models.Highlight{ID: "h2", BookID: "b1", Page: 2, Text: "text", Color: "red", CreatedAt: ts(0)}
	assert.ErrorIs(t, db.AddHighlight(ctx, &bad), ErrInvalidColor)

	highlights, err := db.GetHighlightsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []models.Highlight{h}, highlights)

	require.NoError(t, db.DeleteHighlight(ctx, "h1"))
	highlights, err = db.GetHighlightsByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, highlights)
}

func TestCollections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	c := &models.Collection{ID: "c1", Name: "Sci-Fi", Description: "space", Color: "#336699", CreatedAt: ts(0)}
	require.NoError(t, db.AddCollection(ctx, c))
	assert.ErrorIs(t, db.AddCollection(ctx, c), ErrDuplicateKey)

	got, err := db.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	c.Name = "Science Fiction"
	require.NoError(t, db.UpdateCollection(ctx, c))

	all, err := db.GetAllCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Science Fiction", all[0].Name)

	require.NoError(t, db.DeleteCollection(ctx, "c1"))
	require.NoError(t, db.DeleteCollection(ctx, "c1"))

	got, err = db.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollectionMembership(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.AddBook(ctx, testBook("b2")))
	require.NoError(t, db.AddCollection(ctx, &models.Collection{ID: "c1", Name: "Shelf", CreatedAt: ts(0)}))

	require.NoError(t, db.AddBookToCollection(ctx, "b1", "c1"))
	require.NoError(t, db.AddBookToCollection(ctx, "b2", "c1"))
	// Adding twice is harmless
	require.NoError(t, db.AddBookToCollection(ctx, "b1", "c1"))

	c, err := db.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.BookCount)

	b1, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, b1.Collections)

	books, err := db.GetBooksInCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	require.NoError(t, db.RemoveBookFromCollection(ctx, "b1", "c1"))
	c, err = db.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.BookCount)

	b1, err = db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, b1.Collections)

	assert.ErrorIs(t, db.AddBookToCollection(ctx, "missing", "c1"), ErrBookNotFound)
	assert.ErrorIs(t, db.AddBookToCollection(ctx, "b1", "missing"), ErrCollectionNotFound)
}

func TestDeleteBookRecountsCollections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.AddBook(ctx, testBook("b2")))
	for _, id := range []string{"c1", "c2"} {
		require.NoError(t, db.AddCollection(ctx, &models.Collection{ID: id, Name: "Shelf " + id, CreatedAt: ts(0)}))
	}
	require.NoError(t, db.AddBookToCollection(ctx, "b1", "c1"))
	require.NoError(t, db.AddBookToCollection(ctx, "b1", "c2"))
	require.NoError(t, db.AddBookToCollection(ctx, "b2", "c1"))

	require.NoError(t, db.DeleteBook(ctx, "b1"))

	c1, err := db.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c1.BookCount)

	c2, err := db.GetCollection(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 0, c2.BookCount)

	books, err := db.GetBooksInCollection(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "b2", books[0].ID)
}

func TestCollectionRequiresName(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	assert.ErrorIs(t, db.AddCollection(ctx, &models.Collection{ID: "c1", Name: "", CreatedAt: ts(0)}), ErrInvalidCollection)
	assert.ErrorIs(t, db.AddCollection(ctx, &models.Collection{ID: "c1", Name: "   ", CreatedAt: ts(0)}), ErrInvalidCollection)
	assert.ErrorIs(t, db.AddCollection(ctx, &models.Collection{Name: "No ID", CreatedAt: ts(0)}), ErrInvalidCollection)

	c := &models.Collection{ID: "c1", Name: "Shelf", CreatedAt: ts(0)}
	require.NoError(t, db.AddCollection(ctx, c))
	c.Name = ""
	assert.ErrorIs(t, db.UpdateCollection(ctx, c), ErrInvalidCollection)

	all, err := db.GetAllCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Shelf", all[0].Name)
}

func TestStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.AddBook(ctx, testBook("b2")))

	s := &models.ReadingStats{BookID: "b1", TotalTime: 300, PagesRead: 10, LastReadAt: ts(0)}
	require.NoError(t, db.SaveStats(ctx, s))
	assert.InDelta(t, 2.0, s.ReadingSpeed, 0.0001)

	// Second save overwrites the single row for the book
	s.TotalTime = 600
	require.NoError(t, db.SaveStats(ctx, s))
	require.NoError(t, db.SaveStats(ctx, &models.ReadingStats{BookID: "b2", TotalTime: 60, PagesRead: 3}))

	got, err := db.GetStats(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.TotalTime)
	assert.InDelta(t, 1.0, got.ReadingSpeed, 0.0001)

	all, err := db.GetAllStats(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, db.SaveStats(ctx, &models.ReadingStats{BookID: "ghost"}), ErrBookNotFound)

	none, err := db.GetStats(ctx, "b3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRecentlyReadBooks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i, id := range []string{"first", "never", "second", "third"} {
		book := testBook(id)
		if id != "never" {
			at := ts(time.Duration(i) * time.Hour)
			book.LastReadAt = &at
		}
		require.NoError(t, db.AddBook(ctx, book))
	}

	recent, err := db.GetRecentlyReadBooks(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(recent))
	for i, b := range recent {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"third", "second", "first"}, ids)

	recent, err = db.GetRecentlyReadBooks(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestUnknownIndex(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := getAllFromIndex(context.Background(), db.db, "books", "by-color", bookColumns, "x", scanBook)
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestBooksByHashAndDuplicateHashes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		book := testBook(id)
		book.FileHash = "h1"
		if id == "c" {
			book.FileHash = "h2"
		}
		require.NoError(t, db.AddBook(ctx, book))
	}

	books, err := db.GetBooksByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	hashes, err := db.GetDuplicateHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, hashes)
}

func TestSchemaVersionRecorded(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	version, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.AddBook(ctx, testBook("b1")))
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	book, err := db.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.NotNil(t, book)
}

func TestUpgradeFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")
	ctx := context.Background()

	// Lay down a version 1 schema by hand
	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			cover_ref TEXT NOT NULL DEFAULT '',
			file_ref TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			added_at INTEGER NOT NULL,
			last_read_at INTEGER,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			total_pages INTEGER NOT NULL DEFAULT 0,
			genre TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE progress (
			book_id TEXT PRIMARY KEY,
			current_page INTEGER NOT NULL,
			total_pages INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE bookmarks (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		INSERT INTO books (id, title, added_at, is_favorite) VALUES ('old', 'Old Book', 1700000000000000000, 1);
		PRAGMA user_version = 1;`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	book, err := db.GetBook(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Old Book", book.Title)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), book.AddedAt)
	assert.True(t, book.IsFavorite)
	assert.Nil(t, book.Collections)

	// New stores are usable
	require.NoError(t, db.AddHighlight(ctx, &models.Highlight{ID: "h", BookID: "old", Page: 1, Text: "t", Color: models.HighlightGreen, CreatedAt: ts(0)}))
	require.NoError(t, db.SaveProgress(ctx, &models.ReadingProgress{BookID: "old", CurrentPage: 1, TotalPages: 2, TimeSpent: 5}))
}

func TestRefusesNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "future.db")

	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = raw.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = NewDatabase(dbPath)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestIndexIdent(t *testing.T) {
	assert.Equal(t, "idx_books_by_lastread", indexIdent("books", "by-lastRead"))

	var names []string
	for table, byName := range indexes {
		for name := range byName {
			names = append(names, indexIdent(table, name))
		}
	}
	sort.Strings(names)
	assert.Contains(t, names, "idx_bookmarks_by_book")
	assert.Contains(t, names, "idx_books_by_favorite")
}
