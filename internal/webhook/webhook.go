// Package webhook notifies callers when an import reaches a terminal state.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/domainimport/domainimport/internal/job"
)

const (
	defaultAttempts = 8
	defaultBase     = time.Second
	defaultCap      = 5 * time.Minute
)

// Payload is the JSON body POSTed to a callback URL.
type Payload struct {
	TaskID string    `json:"task_id"`
	Title  string    `json:"title"`
	Total  int       `json:"total"`
	Status job.State `json:"status"`
	ErrMsg *string   `json:"err_msg,omitempty"`
}

// Notifier delivers payloads with full-jitter exponential backoff.
type Notifier struct {
	Client       *http.Client
	Attempts     int
	Base         time.Duration
	Cap          time.Duration
	AllowPrivate bool
	Logger       *slog.Logger

	wg     sync.WaitGroup
	once   sync.Once
	stop   context.Context
	cancel context.CancelFunc
}

// New returns a Notifier with the default retry policy (8 attempts, base 1s,
// cap 5 min, 30s per request).
func New(logger *slog.Logger) *Notifier {
	return &Notifier{
		Client:   &http.Client{Timeout: 30 * time.Second},
		Attempts: defaultAttempts,
		Base:     defaultBase,
		Cap:      defaultCap,
		Logger:   logger,
	}
}

// Notify dispatches the terminal snapshot to callbackURL asynchronously.
// Delivery stops when ctx is cancelled or Shutdown gives up waiting.
func (n *Notifier) Notify(ctx context.Context, callbackURL string, snap job.Snapshot) {
	log := n.logger().With("job_id", snap.ID, "url", callbackURL)
	if err := n.validateURL(callbackURL); err != nil {
		log.Warn("webhook: rejected callback URL", "error", err)
		return
	}
	payload, err := json.Marshal(Payload{
		TaskID: snap.ID,
		Title:  snap.Title,
		Total:  snap.Total,
		Status: snap.Status,
		ErrMsg: snap.ErrMsg,
	})
	if err != nil {
		log.Error("webhook: encode payload", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	detach := context.AfterFunc(n.stopCtx(), cancel)
	n.wg.Go(func() {
		defer cancel()
		defer detach()
		n.send(ctx, log, callbackURL, payload)
	})
}

// Wait blocks until in-flight deliveries have finished or given up.
func (n *Notifier) Wait() { n.wg.Wait() }

// Shutdown waits for in-flight deliveries. If ctx ends first the remaining
// deliveries are cancelled and ctx's error is returned once they exit.
func (n *Notifier) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		n.stopCtx()
		n.cancel()
		<-done
		return ctx.Err()
	}
}

func (n *Notifier) stopCtx() context.Context {
	n.once.Do(func() {
		n.stop, n.cancel = context.WithCancel(context.Background())
	})
	return n.stop
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// validateURL blocks non-HTTP schemes and, unless AllowPrivate is set,
// private/internal IP ranges.
func (n *Notifier) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if n.AllowPrivate {
		return nil
	}

	host := u.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("private/internal IP blocked: %s", ipStr)
		}
	}

	return nil
}

func (n *Notifier) send(ctx context.Context, log *slog.Logger, callbackURL string, payload []byte) {
	for attempt := 1; attempt <= n.Attempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		err := n.post(ctx, callbackURL, payload)
		if err == nil {
			log.Info("webhook delivered", "attempt", attempt)
			return
		}
		log.Warn("webhook attempt failed", "attempt", attempt, "error", err)
		if attempt < n.Attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.jitter(attempt)):
			}
		}
	}
	log.Error("webhook: all retries exhausted")
}

// jitter returns a random duration between 0 and min(Cap, Base * 2^attempt).
func (n *Notifier) jitter(attempt int) time.Duration {
	exp := n.Base * (1 << attempt)
	if exp > n.Cap || exp <= 0 {
		exp = n.Cap
	}
	if exp <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(exp)))
}

func (n *Notifier) post(ctx context.Context, callbackURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
