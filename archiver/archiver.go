// Package archiver periodically moves documents older than a retention
// horizon out of the live index and into compressed files on disk.
package archiver

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/ChristianF88/logarchivist/esclient"
	"github.com/ChristianF88/logarchivist/report"
)

const (
	tickInterval   = time.Minute
	retryDelay     = 6 * time.Second
	defaultAfter   = 30
	searchPageSize = 500
)

// Store is the subset of esclient.Client an Archiver depends on.
type Store interface {
	CountBefore(ctx context.Context, epoch int64) (uint64, error)
	SearchWindow(ctx context.Context, epoch, lowerBound int64) ([]esclient.Document, error)
	DeleteByQueryBefore(ctx context.Context, epoch int64) error
}

// Archiver runs one long-lived timer task that checks, once a minute,
// whether the retention horizon has advanced and — if so — runs exactly
// one archive cycle. A mutex ensures at most one cycle runs at a time.
type Archiver struct {
	store   Store
	dir     string
	prefix  string
	afterDays int
	summary *report.Summary

	mu       sync.Mutex
	lastRun  int64
}

// New builds an Archiver writing into dir with the given file prefix.
// afterDays <= 0 uses the default retention of 30 days.
func New(store Store, dir, prefix string, afterDays int, summary *report.Summary) *Archiver {
	if afterDays <= 0 {
		afterDays = defaultAfter
	}
	return &Archiver{
		store:     store,
		dir:       canonicalizeDir(dir),
		prefix:    prefix,
		afterDays: afterDays,
		summary:   summary,
		lastRun:   -1,
	}
}

// Run sleeps in tickInterval steps, triggering one cycle per horizon
// change, until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	a.maybeRunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.maybeRunCycle(ctx)
		}
	}
}

func (a *Archiver) maybeRunCycle(ctx context.Context) {
	horizon := horizonEpoch(time.Now().UTC(), a.afterDays)

	a.mu.Lock()
	defer a.mu.Unlock()
	if horizon == a.lastRun {
		return
	}
	a.lastRun = horizon

	if err := a.runCycle(ctx, horizon); err != nil {
		log.Printf("archiver: cycle for horizon %d failed: %v", horizon, err)
		if a.summary != nil {
			a.summary.RecordError(err)
		}
	}
}

// runCycle executes the full START -> COUNT -> STREAM -> FINISH -> DONE
// state machine for one horizon value.
func (a *Archiver) runCycle(ctx context.Context, horizon int64) error {
	n, err := a.store.CountBefore(ctx, horizon)
	if err != nil {
		return fmt.Errorf("counting documents before horizon: %w", err)
	}
	if n == 0 {
		return nil
	}

	path := a.archivePath(horizon)
	written, err := a.stream(ctx, horizon, path)
	if err != nil {
		return fmt.Errorf("streaming archive to %s: %w", path, err)
	}

	if err := a.store.DeleteByQueryBefore(ctx, horizon); err != nil {
		return fmt.Errorf("deleting archived documents: %w", err)
	}

	if a.summary != nil {
		a.summary.RecordArchiveCycle(path, written)
	}
	return nil
}

// stream pages through documents older than horizon in ascending time
// order, writing each document to a zlib sink unless its id was already
// written from the previous page, and applies the now += 1
// forward-progress guard to avoid live-locking on a page of 500
// documents that all share one timestamp. When the guard fires, the
// documents at that second that did not fit in the pages already read
// are not written.
func (a *Archiver) stream(ctx context.Context, horizon int64, path string) (uint64, error) {
	sink, finish, err := newArchiveSink(path)
	if err != nil {
		return 0, err
	}

	var (
		now, prevNow int64
		seenIDs      = make(map[string]struct{})
		written      uint64
	)

	for {
		page, err := a.store.SearchWindow(ctx, horizon, now)
		if err != nil {
			log.Printf("archiver: transient search error, retrying in %s: %v", retryDelay, err)
			select {
			case <-ctx.Done():
				finish()
				return written, ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		nextSeen := make(map[string]struct{}, len(page))
		for _, doc := range page {
			now = doc.Record.Time
			if _, dup := seenIDs[doc.ID]; !dup {
				if err := writeLine(sink, doc); err != nil {
					finish()
					return written, fmt.Errorf("writing archive line: %w", err)
				}
				written++
			}
			nextSeen[doc.ID] = struct{}{}
		}
		seenIDs = nextSeen

		if len(page) < searchPageSize {
			break
		}
		if now == prevNow {
			now++
		}
		prevNow = now
	}

	if err := finish(); err != nil {
		return written, fmt.Errorf("finalizing archive file: %w", err)
	}
	return written, nil
}

func newArchiveSink(path string) (*zlib.Writer, func() error, error) {
	file, err := createFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating archive file %s: %w", path, err)
	}
	buffered := &bufferedFile{Writer: bufio.NewWriterSize(file, 64*1024), file: file}
	sink, err := zlib.NewWriterLevel(buffered, zlib.BestCompression)
	if err != nil {
		buffered.Close()
		return nil, nil, fmt.Errorf("constructing zlib sink: %w", err)
	}
	finish := func() error {
		if err := sink.Close(); err != nil {
			buffered.Close()
			return err
		}
		return buffered.Close()
	}
	return sink, finish, nil
}

// archivePath returns <dir>/<prefix>-<YYYY-MM-DD>.log.zz with the date
// derived from horizon in UTC.
func (a *Archiver) archivePath(horizon int64) string {
	date := time.Unix(horizon, 0).UTC().Format("2006-01-02")
	return a.dir + a.prefix + "-" + date + ".log.zz"
}

// horizonEpoch returns epoch seconds at local midnight of (today - N
// days), matching the "local-midnight" horizon definition.
func horizonEpoch(now time.Time, afterDays int) int64 {
	local := now.Local()
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return midnight.AddDate(0, 0, -afterDays).Unix()
}
