package job

import (
	"errors"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state    State
		terminal bool
	}{
		{StatePending, false},
		{StateDone, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("State(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestNew_Pending(t *testing.T) {
	t.Parallel()
	j := New("job-1", "import", 3)
	s := j.Snapshot()
	if s.Status != StatePending {
		t.Fatalf("Status = %q, want %q", s.Status, StatePending)
	}
	if s.Progress == nil || *s.Progress != 0 {
		t.Errorf("Progress = %v, want 0", s.Progress)
	}
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	if s.ErrMsg != nil {
		t.Errorf("ErrMsg = %q, want nil", *s.ErrMsg)
	}
}

func TestNew_EmptyIsDone(t *testing.T) {
	t.Parallel()
	j := New("job-empty", "import", 0)
	if got := j.Status().State; got != StateDone {
		t.Errorf("State = %q, want %q", got, StateDone)
	}
}

func TestAdvance_ReachesDone(t *testing.T) {
	t.Parallel()
	j := New("job-2", "import", 2)

	s := j.Advance(func() error { return nil })
	if s.Status != StatePending || *s.Progress != 1 {
		t.Fatalf("after first step: %+v", s)
	}

	s = j.Advance(func() error { return nil })
	if s.Status != StateDone {
		t.Fatalf("Status = %q, want %q", s.Status, StateDone)
	}
	if s.Progress != nil {
		t.Errorf("done snapshot has Progress = %d", *s.Progress)
	}
	if s.Processed != 2 {
		t.Errorf("Processed = %d, want 2", s.Processed)
	}
}

func TestAdvance_FailureIsTerminal(t *testing.T) {
	t.Parallel()
	j := New("job-3", "import", 5)
	j.Advance(func() error { return nil })

	s := j.Advance(func() error { return errors.New("UNIQUE constraint failed") })
	if s.Status != StateFailed {
		t.Fatalf("Status = %q, want %q", s.Status, StateFailed)
	}
	if s.ErrMsg == nil || *s.ErrMsg != "UNIQUE constraint failed" {
		t.Errorf("ErrMsg = %v, want store message", s.ErrMsg)
	}
	if st := j.Status(); st.Err.Kind != KindStore || st.Processed != 1 {
		t.Errorf("Status = %+v, want store failure at 1", st)
	}

	called := false
	s = j.Advance(func() error { called = true; return nil })
	if called {
		t.Error("step ran on a failed job")
	}
	if s.Status != StateFailed || s.Processed != 1 {
		t.Errorf("failed job changed: %+v", s)
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()
	err := NewError(KindNotFound, "task abc", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(not_found error, ErrNotFound) = false")
	}
	if errors.Is(NewError(KindParse, "no sheet", nil), ErrNotFound) {
		t.Error("parse error matched ErrNotFound")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
}
