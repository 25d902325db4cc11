// Package tailer drives one watch.LineSource, parsing each line and
// handing successes to the shared batcher while routing parse failures to
// diagnostics instead of aborting the source.
package tailer

import (
	"context"
	"log"

	"github.com/ChristianF88/logarchivist/record"
	"github.com/ChristianF88/logarchivist/report"
	"github.com/ChristianF88/logarchivist/watch"
)

// Offerer is the subset of batcher.Batcher a Tailer depends on.
type Offerer interface {
	Offer(rec *record.Record)
}

// Tailer owns one source's lifecycle: read lines, parse, offer. Multiple
// Tailers run concurrently and share one Offerer and one Summary, per the
// "multiple sources run in parallel and share one Batcher instance" rule.
type Tailer struct {
	name    string
	source  watch.LineSource
	batcher Offerer
	summary *report.Summary
}

// New builds a Tailer for one source. name is used only for diagnostics
// (typically the file path or listener address).
func New(name string, source watch.LineSource, batcher Offerer, summary *report.Summary) *Tailer {
	return &Tailer{
		name:    name,
		source:  source,
		batcher: batcher,
		summary: summary,
	}
}

// Run consumes lines until the source closes its channel or ctx is
// cancelled. It never returns an error: a bad line is diagnostics, not a
// reason to stop tailing.
func (t *Tailer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.source.Lines():
			if !ok {
				return
			}
			t.handle(line)
		}
	}
}

func (t *Tailer) handle(line watch.Line) {
	if line.Err != nil {
		log.Printf("tailer %s: source error: %v", t.name, line.Err)
		if t.summary != nil {
			t.summary.RecordError(line.Err)
		}
		return
	}

	if t.summary != nil {
		t.summary.IncLinesTailed()
	}

	rec, err := record.Parse(line.Text)
	if err != nil {
		log.Printf("tailer %s: parse error on line %q: %v", t.name, line.Text, err)
		if t.summary != nil {
			t.summary.IncParseErrors()
		}
		return
	}

	if t.summary != nil {
		t.summary.IncRecordsParsed()
	}
	t.batcher.Offer(rec)
}
