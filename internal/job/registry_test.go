package job

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_AddGet(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	j := New("a", "import", 1)

	if !r.Add(j) {
		t.Fatal("Add returned false for a new id")
	}
	if r.Add(New("a", "other", 2)) {
		t.Error("Add replaced an existing id")
	}

	got, ok := r.Get("a")
	if !ok || got != j {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) found a job")
	}
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			r.Add(New(fmt.Sprintf("job-%d", i), "import", i))
		})
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Len = %d, want 50", r.Len())
	}
	if len(r.List()) != 50 {
		t.Errorf("List len = %d, want 50", len(r.List()))
	}
}
