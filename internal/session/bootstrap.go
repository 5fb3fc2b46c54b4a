package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alvarorichard/svetserialu/internal/util"
)

// Bootstrapper guards an Authenticator: it is a no-op without credentials
// and reuses a successful session for at least one interval.
type Bootstrapper struct {
	auth    Authenticator
	enabled bool
	stats   *util.Stats

	mu      sync.Mutex
	limiter *rate.Limiter
	authed  bool
}

// NewBootstrapper wraps auth. When enabled is false every Login returns false
// without calling auth.
func NewBootstrapper(auth Authenticator, enabled bool, interval time.Duration, stats *util.Stats) *Bootstrapper {
	if interval <= 0 {
		interval = time.Minute
	}
	if stats == nil {
		stats = util.NewStats()
	}
	return &Bootstrapper{
		auth:    auth,
		enabled: enabled,
		stats:   stats,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Login runs the strategy unless a previous success is still fresh.
// Failed attempts do not consume the interval.
func (b *Bootstrapper) Login(ctx context.Context) bool {
	if !b.enabled {
		util.Debug("login skipped, credentials not configured")
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.authed && !b.limiter.Allow() {
		util.Debug("reusing existing session")
		return true
	}

	timer := b.stats.StartTimer("login")
	ok := b.auth.Login(ctx)
	timer.StopAndLog()

	b.authed = ok
	if ok {
		b.limiter = rate.NewLimiter(b.limiter.Limit(), 1)
		b.limiter.Allow()
		b.stats.Inc(util.CounterLogins)
	}
	return ok
}
