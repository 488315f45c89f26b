package notifier

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notetugas/tugas/internal/cache"
	"github.com/notetugas/tugas/internal/note"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// setupCache creates a temporary cache seeded with notes.
func setupCache(t *testing.T, notes ...note.Note) *cache.Store {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	if err := store.ReplaceAll(ctx, notes); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}
	return store
}

func dueNote(id string, in time.Duration) note.Note {
	return note.Note{
		ID:          id,
		Subject:     "Subject " + id,
		Description: "Task " + id,
		Deadline:    note.NewDeadline(testNow.Add(in)),
		Status:      note.StatusPending,
		OwnerID:     1,
	}
}

// fakeSink records deliveries and fails for note ids in failFor.
type fakeSink struct {
	mu        sync.Mutex
	delivered []Notification
	failFor   map[string]bool
	panicFor  map[string]bool
}

func (f *fakeSink) Notify(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicFor[n.NoteID] {
		panic("display crashed")
	}
	if f.failFor[n.NoteID] {
		return errors.New("display unavailable")
	}
	f.delivered = append(f.delivered, n)
	return nil
}

func (f *fakeSink) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, n := range f.delivered {
		ids = append(ids, n.NoteID)
	}
	return ids
}

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string]note.Status
	err    error
}

func (p *fakePusher) PushStatus(ctx context.Context, id string, status note.Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = make(map[string]note.Status)
	}
	p.pushed[id] = status
	return p.err
}

func newTestScheduler(c Cache, sink Sink, opts ...Option) *Scheduler {
	opts = append([]Option{WithConfig(Config{
		Logger: quietLogger(),
		Now:    func() time.Time { return testNow },
	})}, opts...)
	return New(c, sink, opts...)
}

func TestRunCycle_WindowAndMessage(t *testing.T) {
	store := setupCache(t,
		dueNote("soon", 2*time.Hour),
		dueNote("past", -time.Hour),
		dueNote("later", 25*time.Hour),
	)
	sink := &fakeSink{}
	s := newTestScheduler(store, sink)

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	if result.Due != 1 || result.Notified != 1 || result.Failed != 0 {
		t.Errorf("RunCycle() = %+v, want 1 due, 1 notified", result)
	}

	if len(sink.delivered) != 1 {
		t.Fatalf("delivered %d notifications, want 1", len(sink.delivered))
	}
	got := sink.delivered[0]
	n := dueNote("soon", 2*time.Hour)
	if got.Title != "Deadline Reminder: Subject soon" {
		t.Errorf("Title = %q", got.Title)
	}
	if want := "Task 'Task soon' due on " + n.Display; got.Body != want {
		t.Errorf("Body = %q, want %q", got.Body, want)
	}
	if got.Timeout != 20*time.Second {
		t.Errorf("Timeout = %s, want 20s", got.Timeout)
	}

	marked, _ := store.Get(context.Background(), "soon")
	if marked.Status != note.StatusNotified {
		t.Errorf("status = %s, want notified", marked.Status)
	}
}

func TestRunCycle_AtLeastOnceAcrossCycles(t *testing.T) {
	store := setupCache(t, dueNote("a", time.Hour), dueNote("b", 2*time.Hour))
	sink := &fakeSink{failFor: map[string]bool{"a": true}}
	s := newTestScheduler(store, sink)
	ctx := context.Background()

	first, err := s.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first RunCycle() failed: %v", err)
	}
	if first.Notified != 1 || first.Failed != 1 {
		t.Errorf("first cycle = %+v, want 1 notified, 1 failed", first)
	}

	a, _ := store.Get(ctx, "a")
	if a.Status != note.StatusPending {
		t.Errorf("failed note status = %s, want pending", a.Status)
	}

	sink.mu.Lock()
	sink.failFor = nil
	sink.mu.Unlock()

	second, err := s.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second RunCycle() failed: %v", err)
	}
	if second.Due != 1 || second.Notified != 1 {
		t.Errorf("second cycle = %+v, want only a", second)
	}

	ids := sink.ids()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("delivered ids = %v, want [b a]", ids)
	}

	third, _ := s.RunCycle(ctx)
	if third.Due != 0 {
		t.Errorf("third cycle found %d due notes, want 0", third.Due)
	}
}

func TestRunCycle_PanickingSinkIsolated(t *testing.T) {
	store := setupCache(t, dueNote("boom", time.Hour), dueNote("fine", 2*time.Hour))
	sink := &fakeSink{panicFor: map[string]bool{"boom": true}}
	s := newTestScheduler(store, sink)

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	if result.Notified != 1 || result.Failed != 1 {
		t.Errorf("RunCycle() = %+v, want 1 notified, 1 failed", result)
	}
	if ids := sink.ids(); len(ids) != 1 || ids[0] != "fine" {
		t.Errorf("delivered = %v, want [fine]", ids)
	}
}

func TestRunCycle_PushesStatus(t *testing.T) {
	store := setupCache(t, dueNote("a", time.Hour))
	pusher := &fakePusher{err: errors.New("remote down")}
	s := newTestScheduler(store, &fakeSink{}, WithStatusPusher(pusher))

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	if result.Notified != 1 {
		t.Errorf("push failure changed the result: %+v", result)
	}
	if pusher.pushed["a"] != note.StatusNotified {
		t.Errorf("pushed = %v, want a=notified", pusher.pushed)
	}
}

func TestRunCycle_ScanError(t *testing.T) {
	store := setupCache(t)
	_ = store.Close()

	s := newTestScheduler(store, &fakeSink{})
	if _, err := s.RunCycle(context.Background()); err == nil {
		t.Error("RunCycle() on a closed cache succeeded, want error")
	}
}

// failingCache always fails the scan and counts attempts.
type failingCache struct {
	scans atomic.Int32
}

func (c *failingCache) ListDueWithin(ctx context.Context, start, end int64) ([]note.Note, error) {
	c.scans.Add(1)
	return nil, errors.New("database is locked")
}

func (c *failingCache) UpsertStatus(ctx context.Context, id string, status note.Status) error {
	return nil
}

func TestRun_UsesRetryBackoffAfterScanError(t *testing.T) {
	c := &failingCache{}
	s := New(c, &fakeSink{}, WithConfig(Config{
		Interval:     time.Hour,
		RetryBackoff: 5 * time.Millisecond,
		Logger:       quietLogger(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.scans.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := c.scans.Load(); got < 3 {
		t.Errorf("scans = %d, want at least 3 retries", got)
	}
}

func TestRun_SleepsIntervalAfterGoodCycle(t *testing.T) {
	store := setupCache(t)
	var cycles atomic.Int32
	counting := &countingCache{Cache: store, scans: &cycles}

	s := New(counting, &fakeSink{}, WithConfig(Config{
		Interval:     time.Hour,
		RetryBackoff: time.Millisecond,
		Logger:       quietLogger(),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	if got := cycles.Load(); got != 1 {
		t.Errorf("cycles = %d, want 1 within one interval", got)
	}
}

type countingCache struct {
	Cache
	scans *atomic.Int32
}

func (c *countingCache) ListDueWithin(ctx context.Context, start, end int64) ([]note.Note, error) {
	c.scans.Add(1)
	return c.Cache.ListDueWithin(ctx, start, end)
}
