package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/pdf"
	"github.com/justyntemme/folio/internal/reader"
)

// openSession opens a reading session, counting the pages of the file when the
// book has never been rendered. The count is only stored when persist is set.
func (a *app) openSession(ctx context.Context, bookID string, persist bool) (*reader.Session, error) {
	book, err := a.library.Book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.TotalPages > 0 {
		return reader.Open(ctx, a.db, bookID)
	}

	count, err := pdf.GetPageCount(a.files.GetBookPath(bookID))
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	session, err := reader.Open(ctx, a.db, bookID, reader.WithPageCount(count))
	if err != nil {
		return nil, err
	}
	if persist {
		if err := session.SetPageCount(ctx, count); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// readAt opens bookID, moves to page when it is positive, runs fn and closes the session
func (a *app) readAt(ctx context.Context, bookID string, page int, fn func(s *reader.Session) error) error {
	session, err := a.openSession(ctx, bookID, true)
	if err != nil {
		return err
	}
	if page > 0 {
		if err := session.GoTo(ctx, page); err != nil {
			return err
		}
	}
	if err := fn(session); err != nil {
		return err
	}
	_, err = session.Close(ctx)
	return err
}

func newProgressCmd(c *cli) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "progress <id>",
		Short: "Show or set where you are in a book",
		Long: `Show the current page of a book, or move to another page with --page.

Without --page nothing is written, so the book keeps its place on the
recent shelf. Pages past the end are clamped to the last page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if page <= 0 {
					s, err := a.openSession(cmd.Context(), args[0], false)
					if err != nil {
						return err
					}
					printPosition(cmd.OutOrStdout(), s)
					return nil
				}
				return a.readAt(cmd.Context(), args[0], page, func(s *reader.Session) error {
					printPosition(cmd.OutOrStdout(), s)
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "Move to this page")
	return cmd
}

func printPosition(w io.Writer, s *reader.Session) {
	book := s.Book()
	header(w, "%s", book.Title)
	fmt.Fprintf(w, "  %-10s %d of %d (%d%%)\n", "page:", s.Page(), s.TotalPages(), s.Percentage())
	if left, known := s.EstimatedTimeLeft(); known {
		fmt.Fprintf(w, "  %-10s %s\n", "time left:", reader.FormatDuration(left))
	}
}

func newBookmarkCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks",
	}

	var (
		page int
		note string
	)
	add := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Bookmark the current page, or --page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				return a.readAt(cmd.Context(), args[0], page, func(s *reader.Session) error {
					bookmark, err := s.AddBookmark(cmd.Context(), note)
					if err != nil {
						return err
					}
					ok(cmd.OutOrStdout(), "Bookmarked page %d (%s)", bookmark.Page, bookmark.ID)
					return nil
				})
			})
		},
	}
	add.Flags().IntVarP(&page, "page", "p", 0, "Page to bookmark")
	add.Flags().StringVarP(&note, "note", "n", "", "Note for the bookmark")

	list := &cobra.Command{
		Use:   "list <book-id>",
		Short: "List a book's bookmarks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if _, err := a.library.Book(cmd.Context(), args[0]); err != nil {
					return err
				}
				bookmarks, err := a.db.GetBookmarksByBook(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if len(bookmarks) == 0 {
					warn(w, "No bookmarks")
					return nil
				}
				for _, b := range bookmarks {
					fmt.Fprintf(w, "  p.%-5d %s  %s\n", b.Page, b.ID, b.Note)
				}
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:     "rm <bookmark-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a bookmark",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if err := a.db.DeleteBookmark(cmd.Context(), args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Removed bookmark %s", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func newAnnotateCmd(c *cli) *cobra.Command {
	var (
		page int
		text string
		note string
	)

	cmd := &cobra.Command{
		Use:   "annotate <book-id>",
		Short: "Attach a note to a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if note == "" {
				return fmt.Errorf("--note is required")
			}
			return c.withApp(func(a *app) error {
				return a.readAt(cmd.Context(), args[0], page, func(s *reader.Session) error {
					annotation, err := s.AddAnnotation(cmd.Context(), text, note)
					if err != nil {
						return err
					}
					ok(cmd.OutOrStdout(), "Annotated page %d (%s)", annotation.Page, annotation.ID)
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "Page to annotate")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Quoted passage")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Annotation text")
	return cmd
}

func newHighlightCmd(c *cli) *cobra.Command {
	var (
		page  int
		text  string
		color string
	)

	cmd := &cobra.Command{
		Use:   "highlight <book-id>",
		Short: "Highlight a passage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				return fmt.Errorf("--text is required")
			}
			return c.withApp(func(a *app) error {
				return a.readAt(cmd.Context(), args[0], page, func(s *reader.Session) error {
					highlight, err := s.AddHighlight(cmd.Context(), text, models.HighlightColor(color))
					if err != nil {
						return err
					}
					ok(cmd.OutOrStdout(), "Highlighted page %d in %s", highlight.Page, highlight.Color)
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "Page of the passage")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Passage to highlight")
	cmd.Flags().StringVarP(&color, "color", "c", "", "yellow, green, blue, pink or purple")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [book-id]",
		Short: "Show reading time and speed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				ctx := cmd.Context()
				w := cmd.OutOrStdout()

				if len(args) == 1 {
					book, err := a.library.Book(ctx, args[0])
					if err != nil {
						return err
					}
					stats, err := a.db.GetStats(ctx, book.ID)
					if err != nil {
						return err
					}
					if stats == nil {
						warn(w, "No reading recorded for %q", book.Title)
						return nil
					}
					header(w, "%s", book.Title)
					printStats(w, *stats)
					return nil
				}

				all, err := a.db.GetAllStats(ctx)
				if err != nil {
					return err
				}
				total := models.ReadingStats{}
				for _, s := range all {
					total.TotalTime += s.TotalTime
					total.PagesRead += s.PagesRead
				}
				header(w, "%d books read", len(all))
				printStats(w, total)
				return nil
			})
		},
	}
}

func printStats(w io.Writer, s models.ReadingStats) {
	fmt.Fprintf(w, "  %-10s %s\n", "time:", reader.FormatDuration(time.Duration(s.TotalTime)*time.Second))
	fmt.Fprintf(w, "  %-10s %d\n", "pages:", s.PagesRead)
	fmt.Fprintf(w, "  %-10s %.1f pages/min\n", "speed:", s.Speed())
}
