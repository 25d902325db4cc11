package archiver

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChristianF88/logarchivist/esclient"
	"github.com/ChristianF88/logarchivist/record"
	"github.com/ChristianF88/logarchivist/report"
)

type fakeStore struct {
	count       uint64
	docs        []esclient.Document
	deleted     int32
	searchCalls int32
	failFirst   bool
}

func (f *fakeStore) CountBefore(ctx context.Context, epoch int64) (uint64, error) {
	return f.count, nil
}

func (f *fakeStore) SearchWindow(ctx context.Context, epoch, lowerBound int64) ([]esclient.Document, error) {
	n := atomic.AddInt32(&f.searchCalls, 1)
	if f.failFirst && n == 1 {
		return nil, errors.New("transient")
	}

	var page []esclient.Document
	for _, d := range f.docs {
		if d.Record.Time >= lowerBound && d.Record.Time < epoch {
			page = append(page, d)
		}
		if len(page) >= searchPageSize {
			break
		}
	}
	return page, nil
}

func (f *fakeStore) DeleteByQueryBefore(ctx context.Context, epoch int64) error {
	atomic.AddInt32(&f.deleted, 1)
	return nil
}

func docAt(t int64, id string) esclient.Document {
	return esclient.Document{
		ID: id,
		Record: &record.Record{
			Request:    "GET / HTTP/1.1",
			StatusCode: 200,
			Size:       10,
			Time:       t,
		},
	}
}

func readArchive(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer f.Close()
	zr, err := zlib.NewReader(f)
	if err != nil {
		t.Fatalf("zlib reader: %v", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

func TestArchiveCycleNothingToDo(t *testing.T) {
	store := &fakeStore{count: 0}
	a := New(store, t.TempDir(), "weblogs", 30, nil)
	if err := a.runCycle(context.Background(), 1000); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if atomic.LoadInt32(&store.deleted) != 0 {
		t.Error("expected no delete call when count is zero")
	}
}

func TestArchiveCycleWritesAndDeletes(t *testing.T) {
	dir := t.TempDir()
	var docs []esclient.Document
	for i := 0; i < 10; i++ {
		docs = append(docs, docAt(int64(100+i), "id-"+strconv.Itoa(i)))
	}
	store := &fakeStore{count: 10, docs: docs}
	summary := report.New()
	a := New(store, dir, "weblogs", 30, summary)

	horizon := int64(200)
	if err := a.runCycle(context.Background(), horizon); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if atomic.LoadInt32(&store.deleted) != 1 {
		t.Error("expected exactly one delete call")
	}

	path := a.archivePath(horizon)
	lines := readArchive(t, path)
	if len(lines) != 10 {
		t.Fatalf("archive has %d lines, want 10", len(lines))
	}

	snap := summary.Snapshot()
	if snap.ArchiveCycles != 1 || snap.LastArchiveCount != 10 {
		t.Errorf("summary = %+v", snap)
	}
}

// TestArchiveForwardProgressOnSharedTimestamp seeds 600 documents that all
// share one timestamp — the pathological case the now += 1 guard exists
// for. Per the design notes, when the shared-timestamp group exceeds one
// page the guard trades a little completeness for guaranteed termination;
// the property under test is that the cycle always finishes rather than
// looping forever on a page that never shrinks below page size.
func TestArchiveForwardProgressOnSharedTimestamp(t *testing.T) {
	dir := t.TempDir()
	var docs []esclient.Document
	for i := 0; i < 600; i++ {
		docs = append(docs, docAt(40, "id-"+strconv.Itoa(i)))
	}
	store := &fakeStore{count: 600, docs: docs}
	a := New(store, dir, "weblogs", 30, nil)

	done := make(chan error, 1)
	go func() {
		done <- a.runCycle(context.Background(), 100)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runCycle: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("archive cycle did not terminate — forward-progress guard failed")
	}

	lines := readArchive(t, a.archivePath(100))
	if len(lines) == 0 {
		t.Fatal("expected at least the first page to be archived")
	}
	if len(lines) > 600 {
		t.Fatalf("archive has %d lines, more than the seeded 600", len(lines))
	}
}

func TestArchiveRetriesOnTransientSearchError(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{count: 1, docs: []esclient.Document{docAt(50, "only")}, failFirst: true}
	a := New(store, dir, "weblogs", 30, nil)

	done := make(chan error, 1)
	go func() { done <- a.runCycle(context.Background(), 100) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runCycle: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("archive cycle never recovered from transient error")
	}
}

func TestCanonicalizeDirCollapsesSlashes(t *testing.T) {
	cases := map[string]string{
		"/a//b///c": "/a/b/c/",
		"/a":        "/a/",
	}
	for in, want := range cases {
		if got := canonicalizeDir(in); got != want {
			t.Errorf("canonicalizeDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestArchivePathFormat(t *testing.T) {
	a := New(&fakeStore{}, "/tmp/archive", "weblogs", 30, nil)
	horizon := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC).Unix()
	got := a.archivePath(horizon)
	want := "/tmp/archive/weblogs-2026-07-31.log.zz"
	if got != want {
		t.Errorf("archivePath = %q, want %q", got, want)
	}
}

func TestWriteLineFormatsNoneForAbsentFields(t *testing.T) {
	var buf bytes.Buffer
	doc := docAt(1658347967, "x")
	if err := writeLine(&buf, doc); err != nil {
		t.Fatalf("writeLine: %v", err)
	}
	fields := strings.Split(strings.TrimRight(buf.String(), "\n"), "\t")
	if len(fields) != 9 {
		t.Fatalf("got %d fields, want 9: %v", len(fields), fields)
	}
	if fields[1] != "None" || fields[2] != "None" {
		t.Errorf("ip/alt_ip = %q/%q, want None/None", fields[1], fields[2])
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	store := &fakeStore{count: 0}
	a := New(store, t.TempDir(), "weblogs", 30, nil)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
