// Command shelfctl manages bookmarks from the terminal: it runs migrations,
// lists and adds bookmarks and asks for summaries without the web server.
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/arashthr/shelf/internal/config"
	"github.com/arashthr/shelf/internal/library"
	"github.com/arashthr/shelf/internal/logging"
	"github.com/arashthr/shelf/internal/metadata"
	"github.com/arashthr/shelf/internal/summary"
	"github.com/urfave/cli/v2"
)

// deps are the outside services commands talk to, replaced in tests.
type deps struct {
	out        io.Writer
	fetcher    library.MetadataFetcher
	summarizer func(ctx context.Context) (summary.Summarizer, error)
}

func defaultDeps() *deps {
	client := &http.Client{Timeout: 30 * time.Second}
	return &deps{
		out:     os.Stdout,
		fetcher: metadata.NewFetcher(nil),
		summarizer: func(ctx context.Context) (summary.Summarizer, error) {
			cfg, err := config.LoadSummaryConfig()
			if err != nil {
				return nil, err
			}
			return summary.FromConfig(ctx, cfg, client)
		},
	}
}

func newApp(d *deps) *cli.App {
	userFlag := func() cli.Flag {
		return &cli.IntFlag{Name: "user", Aliases: []string{"u"}, Usage: "owner id", Required: true}
	}
	return &cli.App{
		Name:      "shelfctl",
		Usage:     "manage the bookmark shelf",
		Writer:    d.out,
		ErrWriter: d.out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "env file to load"},
			&cli.StringFlag{Name: "sqlite", Usage: "use the SQLite database at `PATH` instead of PostgreSQL"},
		},
		Before: func(c *cli.Context) error {
			return config.LoadEnvFiles(c.String("env"))
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply the database schema",
				Action: d.migrateAction,
			},
			{
				Name:  "list",
				Usage: "list bookmarks of a user",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{Name: "q", Usage: "search title, description and url"},
					&cli.StringFlag{Name: "tag", Usage: "only bookmarks with this tag"},
					&cli.StringFlag{Name: "folder", Usage: "folder id"},
					&cli.StringFlag{Name: "sort", Value: "newest", Usage: "newest, oldest or title"},
				},
				Action: d.listAction,
			},
			{
				Name:      "add",
				Usage:     "save a bookmark",
				ArgsUsage: "URL",
				Flags:     []cli.Flag{userFlag()},
				Action:    d.addAction,
			},
			{
				Name:      "summarize",
				Usage:     "generate a new summary for a bookmark",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{userFlag()},
				Action:    d.summarizeAction,
			},
		},
	}
}

func main() {
	defer logging.Sync()
	if err := newApp(defaultDeps()).Run(os.Args); err != nil {
		logging.Logger.Errorw("shelfctl failed", "error", err)
		os.Exit(1)
	}
}
