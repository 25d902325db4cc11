// Package cli wires the command-line entrypoint: flag definitions,
// config discovery, and handing off to the supervisor.
package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ChristianF88/logarchivist/config"
	"github.com/ChristianF88/logarchivist/supervisor"
	"github.com/ChristianF88/logarchivist/version"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to an optional TOML configuration file, merged under the positional arguments",
	}
	bulkSizeFlag = &cli.IntFlag{
		Name:  "bulk-size",
		Usage: "Override the batcher's flush threshold (default 500, or a bare integer positional argument)",
	}
	archiveAfterFlag = &cli.IntFlag{
		Name:  "archive-after-days",
		Usage: "Retention horizon in days before documents are archived and deleted (default 30)",
	}
	tuiFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Launch the live status dashboard; log output is not redirected while it runs",
	}
)

func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

func run(c *cli.Context) error {
	cfg, err := config.Discover(c.Args().Slice(), c.String("config"))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if c.IsSet("bulk-size") {
		cfg.BulkSize = c.Int("bulk-size")
	}
	if c.IsSet("archive-after-days") {
		cfg.ArchiveAfterDays = c.Int("archive-after-days")
	}

	fmt.Printf("logarchivist: endpoint %s, %d log source(s), archive dir %q, bulk size %d\n",
		cfg.Endpoint.IndexURL(), len(cfg.LogSources), cfg.ArchiveDir, cfg.BulkSize)

	return supervisor.Run(cfg, supervisor.Options{UseTUI: c.Bool("tui")})
}

// App is the root urfave/cli application. Positional arguments are
// classified by shape per config.Discover; flags override the values
// that shape-based discovery would otherwise have inferred.
var App = &cli.App{
	Name:      "logarchivist",
	Usage:     "tail access logs into a document store and archive old entries to disk",
	UsageText: "logarchivist [options] <log-file|archive-dir|endpoint-url|bulk-size|prefix>...",
	Version:   version.Version,
	Compiled:  parseDate(version.Date),
	Flags: []cli.Flag{
		configFlag,
		bulkSizeFlag,
		archiveAfterFlag,
		tuiFlag,
	},
	Action: run,
}
