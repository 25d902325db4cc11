// Package batcher accumulates parsed records behind a single mutex and
// flushes them to the index client once the batch reaches its configured
// size, without blocking concurrent offers.
package batcher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ChristianF88/logarchivist/esclient"
	"github.com/ChristianF88/logarchivist/record"
	"github.com/ChristianF88/logarchivist/report"
)

// Indexer is the subset of esclient.Client a Batcher depends on, so tests
// can substitute a fake.
type Indexer interface {
	BulkIndex(ctx context.Context, records []*record.Record) (esclient.BulkReport, error)
}

const retryBackoff = 250 * time.Millisecond

// Batcher holds pending records shared by every tailer. One mutex guards
// both pending and pendingIDs; flush copies out the batch under the lock
// and does all I/O outside it, per the design's "lock around the batch
// buffer, critical section is offer and detach only" rule.
type Batcher struct {
	mu        sync.Mutex
	pending   []*record.Record
	pendingID map[string]struct{}

	bulkSize int
	client   Indexer
	summary  *report.Summary

	ctx context.Context
	wg  sync.WaitGroup
}

// New builds a Batcher with the given flush threshold. ctx is passed to
// every flush's BulkIndex call, so cancelling it also cancels flushes
// still in flight; Offer does not check ctx and keeps starting flushes.
func New(ctx context.Context, bulkSize int, client Indexer, summary *report.Summary) *Batcher {
	if bulkSize <= 0 {
		bulkSize = 500
	}
	return &Batcher{
		pending:   make([]*record.Record, 0, bulkSize),
		pendingID: make(map[string]struct{}, bulkSize),
		bulkSize:  bulkSize,
		client:    client,
		summary:   summary,
		ctx:       ctx,
	}
}

// Offer adds rec to the pending batch unless its id is already queued. If
// the batch reaches bulkSize, it is detached and flushed asynchronously;
// Offer itself never blocks on network I/O.
func (b *Batcher) Offer(rec *record.Record) {
	id := rec.ID()

	b.mu.Lock()
	if _, dup := b.pendingID[id]; dup {
		b.mu.Unlock()
		if b.summary != nil {
			b.summary.IncDedupedInBatch()
		}
		return
	}
	b.pending = append(b.pending, rec)
	b.pendingID[id] = struct{}{}

	var detached []*record.Record
	if len(b.pending) >= b.bulkSize {
		detached = b.pending
		b.pending = make([]*record.Record, 0, b.bulkSize)
		b.pendingID = make(map[string]struct{}, b.bulkSize)
	}
	b.mu.Unlock()

	if detached != nil {
		b.flushAsync(detached)
	}
}

// Len reports the current size of the pending batch; used by tests
// asserting the |pending| <= bulk_size invariant.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Batcher) flushAsync(batch []*record.Record) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.flush(batch)
	}()
}

// flush sends one batch, retrying exactly once with a fixed backoff before
// dropping it. This is the §9 "at minimum retry with backoff once"
// remediation of the source's lossy bulk-failure behavior.
func (b *Batcher) flush(batch []*record.Record) {
	report, err := b.client.BulkIndex(b.ctx, batch)
	if err != nil {
		log.Printf("batcher: bulk index failed, retrying once: %v", err)
		time.Sleep(retryBackoff)
		report, err = b.client.BulkIndex(b.ctx, batch)
	}
	if err != nil {
		log.Printf("batcher: bulk index failed after retry, dropping batch of %d: %v", len(batch), err)
		if b.summary != nil {
			b.summary.RecordBatchFlush(0, uint64(len(batch)))
			b.summary.RecordError(err)
		}
		return
	}
	if b.summary != nil {
		b.summary.RecordBatchFlush(uint64(report.Indexed), uint64(report.Failed))
	}
}

// Wait blocks until every flush started so far has completed. Used at
// shutdown by callers that want to drain best-effort (the design allows
// losing un-flushed offers on exit, but in-flight flushes should still be
// given a chance to land).
func (b *Batcher) Wait() {
	b.wg.Wait()
}
