package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justyntemme/folio/internal/config"
	"github.com/justyntemme/folio/internal/library"
	"github.com/justyntemme/folio/internal/storage"
)

// cli holds the flags and configuration shared by every subcommand
type cli struct {
	flagConfig  string
	flagDataDir string
	flagNoColor bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "folio",
		Short: "A local library and reader for PDF books",
		Long: `folio keeps a library of PDF books on this machine.

Books, reading progress, bookmarks and collections live in a SQLite
database inside the data directory. Run 'folio serve' to expose the
library over HTTP for a web or mobile reader.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.flagNoColor {
				color.NoColor = true
			}

			cfg, err := config.Load(c.flagConfig)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if c.flagDataDir != "" {
				cfg.DataDir = config.ExpandHome(c.flagDataDir)
			}
			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.flagConfig, "config", "", "Config file path (default: $FOLIO_CONFIG)")
	root.PersistentFlags().StringVar(&c.flagDataDir, "data-dir", "", "Data directory (overrides data_dir from config)")
	root.PersistentFlags().BoolVar(&c.flagNoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newServeCmd(c),
		newAddCmd(c),
		newListCmd(c),
		newEditCmd(c),
		newFavoriteCmd(c),
		newDeleteCmd(c),
		newProgressCmd(c),
		newBookmarkCmd(c),
		newAnnotateCmd(c),
		newHighlightCmd(c),
		newStatsCmd(c),
		newCollectionCmd(c),
		newDuplicatesCmd(c),
		newConfigCmd(c),
	)
	return root
}

// app is an opened library: the database, the blob storage and the service on top
type app struct {
	db      *storage.Database
	files   *storage.FileStorage
	library *library.Service
}

func (c *cli) open() (*app, error) {
	if err := os.MkdirAll(c.cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var opts []storage.Option
	if c.cfg.CascadeAnnotations {
		opts = append(opts, storage.WithAnnotationCascade())
	}
	db, err := storage.NewDatabase(c.cfg.DatabasePath(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	files, err := storage.NewFileStorage(c.cfg.DataDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open file storage: %w", err)
	}

	return &app{
		db:      db,
		files:   files,
		library: library.NewService(db, files, library.WithRecentLimit(c.cfg.RecentLimit)),
	}, nil
}

// withApp opens the library for the duration of fn
func (c *cli) withApp(fn func(a *app) error) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.db.Close()
	return fn(a)
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.WriteYAML(cmd.OutOrStdout())
		},
	}
}

// ok prints a green success line
func ok(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line
func warn(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading
func header(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.CyanString(fmt.Sprintf(format, a...)))
}
