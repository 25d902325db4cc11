// Package supervisor wires configuration, the batcher, tailers, and the
// archiver into one running program and owns the single root context
// every worker derives from.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ChristianF88/logarchivist/archiver"
	"github.com/ChristianF88/logarchivist/batcher"
	"github.com/ChristianF88/logarchivist/config"
	"github.com/ChristianF88/logarchivist/esclient"
	"github.com/ChristianF88/logarchivist/mapping"
	"github.com/ChristianF88/logarchivist/report"
	"github.com/ChristianF88/logarchivist/statusui"
	"github.com/ChristianF88/logarchivist/tailer"
	"github.com/ChristianF88/logarchivist/watch"
)

// Options are the supervisor's runtime choices beyond what config.Config
// discovers from positional arguments.
type Options struct {
	UseTUI bool
}

// lumberjackReadTimeout bounds how long a stalled shipper connection is
// held open before the listener gives up on it.
const lumberjackReadTimeout = 30 * time.Second

// Run builds the index client, validates the schema, opens log sources,
// starts the archiver and tailers, and blocks until every worker has
// terminated. It owns exactly one context.Context for the process's
// lifetime — no per-callback runtimes are constructed underneath it.
func Run(cfg *config.Config, opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := esclient.NewClient(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("building index client: %w", err)
	}

	if err := mapping.EnsureIndex(ctx, client, mapping.StdPrompter{In: os.Stdin, Out: os.Stdout}); err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}

	summary := report.New()
	batch := batcher.New(ctx, cfg.BulkSize, client, summary)

	var wg sync.WaitGroup
	var sources []watch.LineSource

	for _, path := range cfg.LogSources {
		src, err := watch.NewFileTailer(path)
		if err != nil {
			log.Printf("supervisor: skipping log source %s: %v", path, err)
			continue
		}
		sources = append(sources, src)
		t := tailer.New(path, src, batch, summary)
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.Run(ctx)
		}()
	}

	for _, addr := range cfg.ListenAddrs {
		src, err := watch.NewLumberjackListener(addr, lumberjackReadTimeout)
		if err != nil {
			log.Printf("supervisor: skipping lumberjack listener %s: %v", addr, err)
			continue
		}
		sources = append(sources, src)
		t := tailer.New(addr, src, batch, summary)
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.Run(ctx)
		}()
	}

	if cfg.ArchiveDir != "" {
		arc := archiver.New(client, cfg.ArchiveDir, cfg.Prefix, cfg.ArchiveAfterDays, summary)
		wg.Add(1)
		go func() {
			defer wg.Done()
			arc.Run(ctx)
		}()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	signalDone := make(chan struct{})
	go watchSignals(ctx, cancel, signals, signalDone, summary)

	var tuiErr error
	if opts.UseTUI {
		tuiErr = statusui.New(summary).Run(ctx)
		cancel()
	}

	wg.Wait()
	batch.Wait()
	closeSources(sources)
	signal.Stop(signals)
	close(signalDone)

	return tuiErr
}

func watchSignals(ctx context.Context, cancel context.CancelFunc, signals chan os.Signal, done chan struct{}, summary *report.Summary) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case sig := <-signals:
			switch sig {
			case syscall.SIGHUP:
				data, err := summary.ToJSON()
				if err != nil {
					log.Printf("supervisor: rendering summary failed: %v", err)
					continue
				}
				fmt.Println(string(data))
			default:
				log.Printf("supervisor: received %s, shutting down (no drain)", sig)
				cancel()
				return
			}
		}
	}
}

func closeSources(sources []watch.LineSource) {
	for _, src := range sources {
		if err := src.Close(); err != nil {
			log.Printf("supervisor: error closing source: %v", err)
		}
	}
}
