package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/domainimport/domainimport/internal/job"
	"github.com/domainimport/domainimport/internal/record"
)

// fakeStore records inserted domains. failAt (1-based) makes that insert
// fail; panicAt makes it panic.
type fakeStore struct {
	mu       sync.Mutex
	inserted []string
	failAt   int
	panicAt  int
	onInsert func(n int)
}

func (s *fakeStore) Insert(ctx context.Context, r *record.Record) (string, error) {
	s.mu.Lock()
	n := len(s.inserted) + 1
	s.mu.Unlock()

	if s.onInsert != nil {
		s.onInsert(n)
	}
	if n == s.panicAt {
		panic("driver exploded")
	}
	if n == s.failAt {
		return "", errors.New("disk full")
	}

	s.mu.Lock()
	s.inserted = append(s.inserted, r.DomainName)
	s.mu.Unlock()
	return r.DomainName, nil
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted), nil
}

func (s *fakeStore) Close() error { return nil }

func records(names ...string) []record.Record {
	recs := make([]record.Record, len(names))
	for i, n := range names {
		recs[i].DomainName = n
	}
	return recs
}

func TestRun_InsertsAllInOrder(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	j := job.New("j1", "t", 3)

	var progress []int
	w := &Worker{
		Job:     j,
		Records: records("a.com", "b.com", "c.com"),
		Store:   st,
		OnProgress: func(s job.Snapshot) {
			progress = append(progress, s.Processed)
		},
	}
	snap := w.Run(context.Background())

	if snap.Status != job.StateDone {
		t.Fatalf("status = %q, want done", snap.Status)
	}
	if snap.Progress != nil {
		t.Errorf("progress = %d, want absent once done", *snap.Progress)
	}
	want := []string{"a.com", "b.com", "c.com"}
	if len(st.inserted) != len(want) {
		t.Fatalf("inserted = %v, want %v", st.inserted, want)
	}
	for i := range want {
		if st.inserted[i] != want[i] {
			t.Errorf("inserted[%d] = %q, want %q", i, st.inserted[i], want[i])
		}
	}
	// Progress is strictly increasing and ends at Total.
	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Errorf("progress not increasing: %v", progress)
		}
	}
	if got := progress[len(progress)-1]; got != 3 {
		t.Errorf("final progress = %d, want 3", got)
	}
}

func TestRun_StoreErrorFailsJob(t *testing.T) {
	t.Parallel()
	st := &fakeStore{failAt: 2}
	j := job.New("j2", "t", 3)

	snap := (&Worker{Job: j, Records: records("a.com", "b.com", "c.com"), Store: st}).Run(context.Background())

	if snap.Status != job.StateFailed {
		t.Fatalf("status = %q, want error", snap.Status)
	}
	if snap.ErrMsg == nil || *snap.ErrMsg == "" {
		t.Fatal("expected err_msg on failed job")
	}
	if snap.Processed != 1 {
		t.Errorf("processed = %d, want 1", snap.Processed)
	}
	if len(st.inserted) != 1 || st.inserted[0] != "a.com" {
		t.Errorf("inserted = %v, want [a.com]", st.inserted)
	}
	if got := j.Status().Err.Kind; got != job.KindStore {
		t.Errorf("error kind = %q, want %q", got, job.KindStore)
	}
}

func TestRun_PanicFailsJob(t *testing.T) {
	t.Parallel()
	st := &fakeStore{panicAt: 1}
	j := job.New("j3", "t", 2)

	snap := (&Worker{Job: j, Records: records("a.com", "b.com"), Store: st}).Run(context.Background())

	if snap.Status != job.StateFailed {
		t.Fatalf("status = %q, want error", snap.Status)
	}
	if len(st.inserted) != 0 {
		t.Errorf("inserted = %v, want none", st.inserted)
	}
}

func TestRun_CancelledLeavesJobPending(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	st := &fakeStore{onInsert: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	j := job.New("j4", "t", 4)

	snap := (&Worker{Job: j, Records: records("a.com", "b.com", "c.com", "d.com"), Store: st}).Run(ctx)

	if snap.Status != job.StatePending {
		t.Fatalf("status = %q, want padding", snap.Status)
	}
	if snap.Processed != 2 {
		t.Errorf("processed = %d, want 2", snap.Processed)
	}
}

func TestRun_StatusReadableDuringInsert(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	st := &fakeStore{onInsert: func(n int) {
		if n == 1 {
			entered <- struct{}{}
			<-gate
		}
	}}
	j := job.New("j5", "t", 1)
	other := job.New("j6", "other", 5)

	done := make(chan job.Snapshot)
	go func() {
		done <- (&Worker{Job: j, Records: records("a.com"), Store: st}).Run(context.Background())
	}()

	<-entered
	// Another job's lock is independent of the one held by the insert.
	if got := other.Snapshot().Status; got != job.StatePending {
		t.Errorf("other status = %q, want padding", got)
	}
	close(gate)

	if snap := <-done; snap.Status != job.StateDone {
		t.Errorf("status = %q, want done", snap.Status)
	}
}

func TestRun_AlreadyTerminal(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	j := job.New("j7", "t", 0)

	snap := (&Worker{Job: j, Records: nil, Store: st}).Run(context.Background())
	if snap.Status != job.StateDone {
		t.Errorf("status = %q, want done", snap.Status)
	}
	if len(st.inserted) != 0 {
		t.Errorf("inserted = %v, want none", st.inserted)
	}
}
