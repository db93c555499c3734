package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/folio/internal/library"
	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/pdf"
)

func newAddCmd(c *cli) *cobra.Command {
	var title, author, genre string

	cmd := &cobra.Command{
		Use:   "add <file.pdf>",
		Short: "Import a PDF into the library",
		Long: `Import a PDF into the library.

The file is copied into the data directory. When --title is omitted the
title comes from the document info, or from the file name.

Examples:
  folio add ~/Downloads/sicp.pdf
  folio add paper.pdf --title "Attention Is All You Need" --genre ml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			meta, err := pdf.ParsePDF(path)
			if err != nil {
				return err
			}
			if title == "" {
				title = meta.Title
			}
			if author == "" {
				author = meta.Author
			}

			return c.withApp(func(a *app) error {
				book, err := a.library.Import(cmd.Context(), library.ImportRequest{
					Path:   path,
					Title:  title,
					Author: author,
					Genre:  genre,
				})
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Added %q as %s", book.Title, book.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().StringVar(&genre, "genre", "", "Book genre")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var (
		favorites bool
		recent    bool
		search    string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List books in the library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if favorites && recent {
				return fmt.Errorf("--favorites and --recent cannot be combined")
			}

			return c.withApp(func(a *app) error {
				ctx := cmd.Context()
				var (
					books []models.Book
					err   error
				)
				switch {
				case favorites:
					books, err = a.library.Favorites(ctx)
				case recent:
					books, err = a.library.Recent(ctx, 0)
				default:
					books, err = a.library.Books(ctx)
				}
				if err != nil {
					return err
				}
				books = library.Filter(books, search)

				progress, err := a.library.ProgressMap(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if len(books) == 0 {
					warn(w, "No books found")
					return nil
				}
				for _, book := range books {
					printBook(w, book, progress)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorite books")
	cmd.Flags().BoolVar(&recent, "recent", false, "Recently read books, most recent first")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by title, author or genre")
	return cmd
}

func printBook(w io.Writer, book models.Book, progress map[string]int) {
	star := " "
	if book.IsFavorite {
		star = color.YellowString("★")
	}

	var details []string
	if book.Author != "" {
		details = append(details, book.Author)
	}
	if book.Genre != "" {
		details = append(details, book.Genre)
	}
	if pct, found := progress[book.ID]; found {
		details = append(details, fmt.Sprintf("%d%%", pct))
	}

	line := fmt.Sprintf("%s %s  %s", star, color.HiBlackString(book.ID), book.Title)
	if len(details) > 0 {
		line += color.HiBlackString("  (" + strings.Join(details, ", ") + ")")
	}
	fmt.Fprintln(w, line)
}

func newEditCmd(c *cli) *cobra.Command {
	var title, author, genre string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a book's title, author or genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd library.BookUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("author") {
				upd.Author = &author
			}
			if cmd.Flags().Changed("genre") {
				upd.Genre = &genre
			}

			return c.withApp(func(a *app) error {
				book, err := a.library.Update(cmd.Context(), args[0], upd)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Updated %q", book.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&author, "author", "", "New author")
	cmd.Flags().StringVar(&genre, "genre", "", "New genre")
	return cmd
}

func newFavoriteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle a book's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				book, err := a.library.ToggleFavorite(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if book.IsFavorite {
					ok(cmd.OutOrStdout(), "Marked %q as favorite", book.Title)
				} else {
					ok(cmd.OutOrStdout(), "Removed %q from favorites", book.Title)
				}
				return nil
			})
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book, its file and its reading history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if err := a.library.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Deleted %s", args[0])
				return nil
			})
		},
	}
}

func newDuplicatesCmd(c *cli) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find books with identical files, or merge them with --keep",
		Long: `Find books whose files have the same content.

Books imported without a content hash are hashed first. With --keep, every
other book in the same group as the kept book is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				ctx := cmd.Context()
				w := cmd.OutOrStdout()

				progress, err := a.library.BackfillHashes(ctx)
				if err != nil {
					return err
				}
				if progress.Failed > 0 {
					warn(w, "%d books could not be hashed", progress.Failed)
				}

				groups, err := a.library.Duplicates(ctx)
				if err != nil {
					return err
				}

				if keep != "" {
					for _, group := range groups {
						var deleteIDs []string
						found := false
						for _, book := range group.Books {
							if book.ID == keep {
								found = true
							} else {
								deleteIDs = append(deleteIDs, book.ID)
							}
						}
						if !found {
							continue
						}
						result, err := a.library.MergeDuplicates(ctx, keep, deleteIDs)
						if err != nil {
							return err
						}
						ok(w, "Kept %q, deleted %d copies", result.KeptBook.Title, len(result.DeletedBooks))
						return nil
					}
					return fmt.Errorf("%s has no duplicates", keep)
				}

				if len(groups) == 0 {
					ok(w, "No duplicates")
					return nil
				}
				for _, group := range groups {
					header(w, "%s", group.FileHash[:min(12, len(group.FileHash))])
					for _, book := range group.Books {
						fmt.Fprintf(w, "  %s  %s\n", book.ID, book.Title)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&keep, "keep", "", "Keep this book and delete its duplicates")
	return cmd
}
