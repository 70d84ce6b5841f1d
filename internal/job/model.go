package job

import (
	"errors"
	"sync"
	"time"
)

// State is the wire name of a job's status.
type State string

// StatePending keeps the "padding" spelling existing clients poll for.
const (
	StatePending State = "padding"
	StateDone    State = "done"
	StateFailed  State = "error"
)

// IsTerminal returns true for states that represent a final state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Status is the job state machine: Pending(Processed), Done or Failed(Err).
type Status struct {
	State     State
	Processed int
	Err       *Error
}

// Pending returns the in-progress status with n records processed.
func Pending(n int) Status { return Status{State: StatePending, Processed: n} }

// Job tracks one bulk import. Total is fixed at creation; Status is only
// changed through Advance, which holds the job lock.
type Job struct {
	ID          string
	Title       string
	Total       int
	Source      string
	CallbackURL string
	CreatedAt   time.Time

	mu        sync.RWMutex
	status    Status
	updatedAt time.Time
}

// New creates a pending job. A job with no records starts out Done.
func New(id, title string, total int) *Job {
	now := time.Now().UTC()
	j := &Job{
		ID:        id,
		Title:     title,
		Total:     total,
		CreatedAt: now,
		status:    Pending(0),
		updatedAt: now,
	}
	if total == 0 {
		j.status = Status{State: StateDone}
	}
	return j
}

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Advance runs step while holding the job lock, then records its outcome:
// success counts one more processed record (Done once Processed reaches
// Total), an error moves the job to Failed. Terminal jobs are left untouched
// and step is not called. The returned snapshot reflects the state on unlock.
func (j *Job) Advance(step func() error) Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.State.IsTerminal() {
		return j.snapshotLocked()
	}

	if err := step(); err != nil {
		var je *Error
		if !errors.As(err, &je) {
			je = NewError(KindStore, "", err)
		}
		j.status = Status{State: StateFailed, Processed: j.status.Processed, Err: je}
	} else {
		next := j.status.Processed + 1
		if next >= j.Total {
			j.status = Status{State: StateDone, Processed: j.Total}
		} else {
			j.status = Pending(next)
		}
	}
	j.updatedAt = time.Now().UTC()
	return j.snapshotLocked()
}

// Snapshot copies the job into an immutable view under the read lock.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:        j.ID,
		Title:     j.Title,
		Total:     j.Total,
		Status:    j.status.State,
		Processed: j.status.Processed,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.updatedAt,
	}
	switch j.status.State {
	case StatePending:
		n := j.status.Processed
		s.Progress = &n
	case StateFailed:
		msg := j.status.Err.Reason()
		s.ErrMsg = &msg
	}
	return s
}

// Snapshot is the polling view of a job. Progress is set only while pending,
// ErrMsg only once failed.
type Snapshot struct {
	ID        string    `json:"-"`
	Title     string    `json:"title"`
	Total     int       `json:"total"`
	Status    State     `json:"status"`
	Processed int       `json:"-"`
	Progress  *int      `json:"progress,omitempty"`
	ErrMsg    *string   `json:"err_msg,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

