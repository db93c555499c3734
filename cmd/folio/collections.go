package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/justyntemme/folio/internal/models"
	"github.com/justyntemme/folio/internal/storage"
)

func newCollectionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Group books into collections",
	}

	var description, colorFlag string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				collection := &models.Collection{
					ID:          uuid.New().String(),
					Name:        args[0],
					Description: description,
					Color:       colorFlag,
					CreatedAt:   time.Now().UTC(),
				}
				if err := a.db.AddCollection(cmd.Context(), collection); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Created collection %q (%s)", collection.Name, collection.ID)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "Collection description")
	create.Flags().StringVar(&colorFlag, "color", "", "Display color, e.g. #aa3300")

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				collections, err := a.db.GetAllCollections(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(collections) == 0 {
					warn(w, "No collections")
					return nil
				}
				for _, col := range collections {
					fmt.Fprintf(w, "  %s  %s (%d books)\n", col.ID, col.Name, col.BookCount)
				}
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <collection-id>",
		Short: "List the books in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				ctx := cmd.Context()
				collection, err := a.db.GetCollection(ctx, args[0])
				if err != nil {
					return err
				}
				if collection == nil {
					return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, args[0])
				}
				books, err := a.db.GetBooksInCollection(ctx, collection.ID)
				if err != nil {
					return err
				}
				progress, err := a.library.ProgressMap(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				header(w, "%s", collection.Name)
				if collection.Description != "" {
					fmt.Fprintln(w, collection.Description)
				}
				for _, book := range books {
					printBook(w, book, progress)
				}
				return nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <collection-id> <book-id>",
		Short: "Add a book to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if err := a.db.AddBookToCollection(cmd.Context(), args[1], args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Added %s to %s", args[1], args[0])
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <collection-id> <book-id>",
		Short: "Remove a book from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if err := a.db.RemoveBookFromCollection(cmd.Context(), args[1], args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Removed %s from %s", args[1], args[0])
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection. Its books are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				if err := a.db.DeleteCollection(cmd.Context(), args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Deleted collection %s", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, show, add, remove, del)
	return cmd
}
