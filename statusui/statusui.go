// Package statusui renders a live terminal dashboard of the running
// program's report.Summary counters, for operators who pass -tui.
package statusui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ChristianF88/logarchivist/report"
)

const refreshInterval = time.Second

// Dashboard is a single-screen tview application showing tailing,
// batching, and archiving counters, refreshed on a timer.
type Dashboard struct {
	app    *tview.Application
	view   *tview.TextView
	summary *report.Summary
}

// New builds a Dashboard bound to summary. Call Run to take over the
// terminal; it returns when the user presses 'q' or ctx is cancelled.
func New(summary *report.Summary) *Dashboard {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetChangedFunc(func() {})
	view.SetBorder(true).SetTitle(" log archivist ")

	app := tview.NewApplication().SetRoot(view, true)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return &Dashboard{app: app, view: view, summary: summary}
}

// Run blocks until the dashboard is stopped, refreshing its contents
// every refreshInterval until then and stopping the app if ctx is
// cancelled first.
func (d *Dashboard) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.app.Stop()
				return
			case <-done:
				return
			case <-ticker.C:
				d.app.QueueUpdateDraw(d.render)
			}
		}
	}()
	defer close(done)

	d.app.QueueUpdateDraw(d.render)
	return d.app.Run()
}

func (d *Dashboard) render() {
	snap := d.summary.Snapshot()
	d.view.Clear()
	fmt.Fprintf(d.view, "[yellow]lines tailed[-]     %d\n", snap.LinesTailed)
	fmt.Fprintf(d.view, "[yellow]records parsed[-]   %d\n", snap.RecordsParsed)
	fmt.Fprintf(d.view, "[yellow]parse errors[-]     %d\n", snap.ParseErrors)
	fmt.Fprintf(d.view, "[yellow]deduped in batch[-] %d\n", snap.DedupedInBatch)
	fmt.Fprintf(d.view, "[yellow]batches flushed[-]  %d\n", snap.BatchesFlushed)
	fmt.Fprintf(d.view, "[yellow]records indexed[-]  %d\n", snap.RecordsIndexed)
	fmt.Fprintf(d.view, "[yellow]records dropped[-]  %d\n", snap.RecordsDropped)
	fmt.Fprintf(d.view, "\n[yellow]archive cycles[-]   %d\n", snap.ArchiveCycles)
	if snap.LastArchiveFile != "" {
		fmt.Fprintf(d.view, "[yellow]last archive[-]     %s (%d records)\n", snap.LastArchiveFile, snap.LastArchiveCount)
	}
	if snap.LastError != "" {
		fmt.Fprintf(d.view, "\n[red]last error[-] %s\n", snap.LastError)
	}
	fmt.Fprintf(d.view, "\npress q to quit")
}
