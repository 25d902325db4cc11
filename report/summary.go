// Package report holds the running counters the supervisor dumps as JSON
// on SIGHUP and the status dashboard renders live.
package report

import (
	"encoding/json"
	"sync"
	"time"
)

// Summary is a thread-safe set of counters updated by every tailer, the
// batcher, and the archiver. All mutation goes through its methods; the
// embedded mutex never leaves the package.
type Summary struct {
	mu sync.Mutex

	GeneratedAt time.Time `json:"generated_at"`

	LinesTailed    uint64 `json:"lines_tailed"`
	RecordsParsed  uint64 `json:"records_parsed"`
	ParseErrors    uint64 `json:"parse_errors"`
	BatchesFlushed uint64 `json:"batches_flushed"`
	RecordsIndexed uint64 `json:"records_indexed"`
	RecordsDropped uint64 `json:"records_dropped"`
	DedupedInBatch uint64 `json:"deduped_in_batch"`

	ArchiveCycles     uint64     `json:"archive_cycles"`
	LastArchiveFile   string     `json:"last_archive_file,omitempty"`
	LastArchiveCount  uint64     `json:"last_archive_count"`
	LastArchiveAt     *time.Time `json:"last_archive_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	LastErrorAt       *time.Time `json:"last_error_at,omitempty"`
}

// Snapshot is a point-in-time, lock-free copy of Summary's counters,
// safe to marshal or display without holding (or copying) any mutex.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	LinesTailed    uint64 `json:"lines_tailed"`
	RecordsParsed  uint64 `json:"records_parsed"`
	ParseErrors    uint64 `json:"parse_errors"`
	BatchesFlushed uint64 `json:"batches_flushed"`
	RecordsIndexed uint64 `json:"records_indexed"`
	RecordsDropped uint64 `json:"records_dropped"`
	DedupedInBatch uint64 `json:"deduped_in_batch"`

	ArchiveCycles    uint64     `json:"archive_cycles"`
	LastArchiveFile  string     `json:"last_archive_file,omitempty"`
	LastArchiveCount uint64     `json:"last_archive_count"`
	LastArchiveAt    *time.Time `json:"last_archive_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	LastErrorAt      *time.Time `json:"last_error_at,omitempty"`
}

// New returns an empty Summary stamped with the current time.
func New() *Summary {
	return &Summary{GeneratedAt: time.Now().UTC()}
}

func (s *Summary) IncLinesTailed() {
	s.mu.Lock()
	s.LinesTailed++
	s.mu.Unlock()
}

func (s *Summary) IncRecordsParsed() {
	s.mu.Lock()
	s.RecordsParsed++
	s.mu.Unlock()
}

func (s *Summary) IncParseErrors() {
	s.mu.Lock()
	s.ParseErrors++
	s.mu.Unlock()
}

func (s *Summary) IncDedupedInBatch() {
	s.mu.Lock()
	s.DedupedInBatch++
	s.mu.Unlock()
}

// RecordBatchFlush accounts for one completed bulk_index call: indexed
// successes, and a separate drop count for a batch that failed outright.
func (s *Summary) RecordBatchFlush(indexed, dropped uint64) {
	s.mu.Lock()
	s.BatchesFlushed++
	s.RecordsIndexed += indexed
	s.RecordsDropped += dropped
	s.mu.Unlock()
}

// RecordArchiveCycle accounts for one completed archive cycle.
func (s *Summary) RecordArchiveCycle(file string, count uint64) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.ArchiveCycles++
	s.LastArchiveFile = file
	s.LastArchiveCount = count
	s.LastArchiveAt = &now
	s.mu.Unlock()
}

// RecordError latches the most recent error message, for diagnostics.
func (s *Summary) RecordError(err error) {
	if err == nil {
		return
	}
	now := time.Now().UTC()
	s.mu.Lock()
	s.LastError = err.Error()
	s.LastErrorAt = &now
	s.mu.Unlock()
}

// Snapshot returns a lock-free copy of the current counters, built
// field-by-field so the embedded mutex is never copied.
func (s *Summary) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		GeneratedAt:      s.GeneratedAt,
		LinesTailed:      s.LinesTailed,
		RecordsParsed:    s.RecordsParsed,
		ParseErrors:      s.ParseErrors,
		BatchesFlushed:   s.BatchesFlushed,
		RecordsIndexed:   s.RecordsIndexed,
		RecordsDropped:   s.RecordsDropped,
		DedupedInBatch:   s.DedupedInBatch,
		ArchiveCycles:    s.ArchiveCycles,
		LastArchiveFile:  s.LastArchiveFile,
		LastArchiveCount: s.LastArchiveCount,
		LastArchiveAt:    s.LastArchiveAt,
		LastError:        s.LastError,
		LastErrorAt:      s.LastErrorAt,
	}
}

// ToJSON renders a point-in-time snapshot as pretty-printed JSON.
func (s *Summary) ToJSON() ([]byte, error) {
	snap := s.Snapshot()
	snap.GeneratedAt = time.Now().UTC()
	return json.MarshalIndent(snap, "", "  ")
}
