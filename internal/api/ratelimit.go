package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorIdle is how long a client's bucket survives without requests.
const visitorIdle = 5 * time.Minute

type visitor struct {
	bucket *rate.Limiter
	last   time.Time
}

// visitors tracks one token bucket per client host. Idle buckets are swept
// on the request path, at most once per visitorIdle.
type visitors struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu     sync.Mutex
	byHost map[string]*visitor
	swept  time.Time
}

func newVisitors(perSecond int) *visitors {
	return &visitors{
		limit:  rate.Limit(perSecond),
		burst:  perSecond,
		now:    time.Now,
		byHost: make(map[string]*visitor),
	}
}

// take reports whether host may make another request now.
func (v *visitors) take(host string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.swept) >= visitorIdle {
		v.sweep(now)
	}

	vis := v.byHost[host]
	if vis == nil {
		vis = &visitor{bucket: rate.NewLimiter(v.limit, v.burst)}
		v.byHost[host] = vis
	}
	vis.last = now
	return vis.bucket.AllowN(now, 1)
}

func (v *visitors) sweep(now time.Time) {
	for host, vis := range v.byHost {
		if now.Sub(vis.last) >= visitorIdle {
			delete(v.byHost, host)
		}
	}
	v.swept = now
}

// RateLimit caps each client host at perSecond requests per second, with a
// burst of the same size. Zero disables it. Behind a proxy mount chi's
// RealIP first so RemoteAddr carries the client address.
func RateLimit(perSecond int) Middleware {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	v := newVisitors(perSecond)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v.take(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusTooManyRequests, uploadResponse{Status: "fail", Message: "rate limit exceeded, slow down"})
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
