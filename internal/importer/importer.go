// Package importer accepts uploads, creates import jobs and runs their
// workers in the background.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/domainimport/domainimport/internal/job"
	"github.com/domainimport/domainimport/internal/record"
	"github.com/domainimport/domainimport/internal/staging"
	"github.com/domainimport/domainimport/internal/store"
	"github.com/domainimport/domainimport/internal/worker"
)

// Event is a progress update delivered to subscribers.
type Event struct {
	Name     string // "status" or "result"
	Snapshot job.Snapshot
}

// Notifier is told about every job that reaches a terminal state with a
// callback URL.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, snap job.Snapshot)
}

// Upload is one submitted file.
type Upload struct {
	Filename    string
	Data        []byte
	Title       string
	CallbackURL string
}

// Options tune a Service. Zero values are usable.
type Options struct {
	DefaultTitle string
	Notifier     Notifier
	Logger       *slog.Logger
}

// Service coordinates staging, parsing and background import of uploads.
type Service struct {
	registry     *job.Registry
	store        store.Store
	stager       staging.Stager
	notifier     Notifier
	log          *slog.Logger
	defaultTitle string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	subs map[string][]chan Event
}

// New creates a Service. Workers run until they finish or Stop is called.
func New(st store.Store, stager staging.Stager, opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:     job.NewRegistry(),
		store:        st,
		stager:       stager,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		defaultTitle: opts.DefaultTitle,
		ctx:          ctx,
		cancel:       cancel,
		subs:         make(map[string][]chan Event),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.defaultTitle == "" {
		s.defaultTitle = "导入数据"
	}
	return s
}

// Submit stages and parses u, registers a job for its records and starts
// importing them in the background. It returns the job id without waiting
// for any record to be inserted. Staging and parse failures are returned as
// *job.Error and leave no job behind.
func (s *Service) Submit(ctx context.Context, u Upload) (string, error) {
	source, err := s.stager.Stage(ctx, u.Filename, u.Data)
	if err != nil {
		return "", job.NewError(job.KindStaging, "stage upload", err)
	}

	records, err := record.Parse(u.Data)
	if err != nil {
		return "", job.NewError(job.KindParse, "", err)
	}

	title := strings.TrimSpace(u.Title)
	if title == "" {
		title = s.defaultTitle
	}

	j := job.New(uuid.New().String(), title, len(records))
	j.Source = source
	j.CallbackURL = strings.TrimSpace(u.CallbackURL)
	for !s.registry.Add(j) {
		j.ID = uuid.New().String()
	}

	s.log.Info("import submitted", "job_id", j.ID, "total", j.Total, "source", source)

	w := &worker.Worker{
		Job:        j,
		Records:    records,
		Store:      s.store,
		OnProgress: s.progress,
		Logger:     s.log,
	}
	s.wg.Go(func() {
		snap := w.Run(s.ctx)
		if snap.Status.IsTerminal() {
			s.finish(j, snap)
		}
	})

	return j.ID, nil
}

// Status returns the current snapshot of job id.
func (s *Service) Status(id string) (job.Snapshot, error) {
	j, ok := s.registry.Get(id)
	if !ok {
		return job.Snapshot{}, job.ErrNotFound
	}
	return j.Snapshot(), nil
}

// List returns snapshots of every job, newest first.
func (s *Service) List() []job.Snapshot {
	jobs := s.registry.List()
	out := make([]job.Snapshot, len(jobs))
	for i, j := range jobs {
		out[i] = j.Snapshot()
	}
	return out
}

// Subscribe registers a buffered channel for id's progress events and
// returns it with the snapshot taken after registration. If that snapshot is
// terminal no further events will arrive and the caller should Unsubscribe.
// Otherwise the channel is closed after the final "result" event.
func (s *Service) Subscribe(id string) (chan Event, job.Snapshot, error) {
	j, ok := s.registry.Get(id)
	if !ok {
		return nil, job.Snapshot{}, job.ErrNotFound
	}
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	s.mu.Unlock()
	return ch, j.Snapshot(), nil
}

// Unsubscribe removes a channel returned by Subscribe.
func (s *Service) Unsubscribe(id string, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chans := s.subs[id]
	for i, c := range chans {
		if c == ch {
			s.subs[id] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(s.subs[id]) == 0 {
		delete(s.subs, id)
	}
}

// Wait blocks until every running worker has returned or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels running workers and waits for them to return. Interrupted
// jobs keep their last pending status.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// IsNotFound reports whether err means the job id is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, job.ErrNotFound)
}

func (s *Service) progress(snap job.Snapshot) {
	if snap.Status.IsTerminal() {
		return
	}
	s.notify(snap.ID, Event{Name: "status", Snapshot: snap})
}

func (s *Service) finish(j *job.Job, snap job.Snapshot) {
	s.notifyAndClose(j.ID, Event{Name: "result", Snapshot: snap})
	if j.CallbackURL != "" && s.notifier != nil {
		// Stop must not cut off delivery of a result that already exists.
		s.notifier.Notify(context.WithoutCancel(s.ctx), j.CallbackURL, snap)
	}
}

// notify sends an event to all subscribers of a job without blocking.
func (s *Service) notify(id string, ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs[id] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// notifyAndClose sends the final event and closes all channels for the job.
// A full channel loses its oldest pending event so the final one always fits.
func (s *Service) notifyAndClose(id string, ev Event) {
	s.mu.Lock()
	chans := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
		close(ch)
	}
}
