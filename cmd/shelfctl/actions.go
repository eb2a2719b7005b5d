package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/config"
	"github.com/arashthr/shelf/internal/db"
	"github.com/arashthr/shelf/internal/library"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/internal/types"
	"github.com/urfave/cli/v2"
)

// openStore returns the bookmark store selected by the global flags and a
// function that releases it.
func openStore(c *cli.Context) (library.Store, func(), error) {
	if path := c.String("sqlite"); path != "" {
		sqlDB, err := db.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return &models.SQLiteBookmarkModel{DB: sqlDB}, func() { sqlDB.Close() }, nil
	}
	pool, err := db.Open(c.Context, config.DefaultPostgresConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &models.BookmarkModel{Pool: pool}, pool.Close, nil
}

func (d *deps) migrateAction(c *cli.Context) error {
	if path := c.String("sqlite"); path != "" {
		sqlDB, err := db.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		fmt.Fprintf(d.out, "SQLite schema applied to %s\n", path)
		return nil
	}
	if err := db.Migrate(config.DefaultPostgresConfig().PgConnectionString()); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	fmt.Fprintln(d.out, "PostgreSQL migrations applied")
	return nil
}

func (d *deps) listAction(c *cli.Context) error {
	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	lib := &library.Library{Store: store}
	page, err := lib.Page(c.Context, types.UserId(c.Int("user")), query.Filter{
		Query:    strings.TrimSpace(c.String("q")),
		Tag:      strings.TrimSpace(c.String("tag")),
		FolderID: types.FolderId(c.String("folder")),
		Sort:     query.ParseSort(c.String("sort")),
	})
	if err != nil {
		return err
	}

	if len(page.Bookmarks) == 0 {
		fmt.Fprintln(d.out, "No bookmarks found")
		return nil
	}

	fmt.Fprintf(d.out, "%-36s %-12s %-40s %s\n", "ID", "Created", "Title", "Tags")
	fmt.Fprintln(d.out, strings.Repeat("-", 110))
	for _, b := range page.Bookmarks {
		fmt.Fprintf(d.out, "%-36s %-12s %-40s %s\n",
			b.ID,
			b.CreatedAt.Format("2006-01-02"),
			truncate(b.Title, 40),
			strings.Join(b.Tags, ","),
		)
	}
	fmt.Fprintf(d.out, "\nTotal: %d bookmarks\n", len(page.Bookmarks))
	return nil
}

func (d *deps) addAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("add takes exactly one URL", 2)
	}
	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	lib := &library.Library{Store: store, Fetcher: d.fetcher}
	if s, err := d.summarizer(c.Context); err != nil {
		fmt.Fprintf(d.out, "Saving without a summary: %v\n", err)
	} else {
		lib.Summarizer = s
	}

	b, err := lib.Create(c.Context, types.UserId(c.Int("user")), c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Saved %s\n  %s\n  %s\n", b.ID, b.Title, b.URL)
	if b.Summary != nil {
		fmt.Fprintf(d.out, "\n%s\n", *b.Summary)
	}
	return nil
}

func (d *deps) summarizeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("summarize takes exactly one bookmark ID", 2)
	}
	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := d.summarizer(c.Context)
	if err != nil {
		return err
	}
	lib := &library.Library{Store: store, Fetcher: d.fetcher, Summarizer: s}
	result, err := lib.GenerateSummary(c.Context, types.UserId(c.Int("user")), types.BookmarkId(c.Args().First()))
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s\n\n(%s, %d characters in %s)\n", result.Summary, result.Source, result.OriginalLength, result.ProcessingTime.Round(time.Millisecond))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
