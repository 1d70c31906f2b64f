package bridge

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// limiterIdle is how long a tab's limiter survives without pings before it
// is dropped. Closed tabs never send a removal through the bridge, so idle
// expiry is the only cleanup.
const limiterIdle = 5 * time.Minute

// pingLimiter throttles activity pings per tab. In-page scripts fire on
// every mousemove, so an unthrottled page would turn the bridge into a
// ledger write per frame.
type pingLimiter struct {
	mu      sync.Mutex
	tabs    map[tabid.ID]*pingClient
	nowFunc func() time.Time
}

type pingClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newPingLimiter(nowFunc func() time.Time) *pingLimiter {
	return &pingLimiter{
		tabs:    make(map[tabid.ID]*pingClient),
		nowFunc: nowFunc,
	}
}

// allow reports whether a ping for id may go through under the given
// limits. Limits come from the live config, so existing limiters are
// retuned in place when they change.
func (p *pingLimiter) allow(id tabid.ID, perSecond float64, burst int) bool {
	if perSecond <= 0 {
		return true
	}

	now := p.nowFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.expire(now)

	c, ok := p.tabs[id]
	if !ok {
		c = &pingClient{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		p.tabs[id] = c
	}

	if c.limiter.Limit() != rate.Limit(perSecond) {
		c.limiter.SetLimitAt(now, rate.Limit(perSecond))
	}

	if c.limiter.Burst() != burst {
		c.limiter.SetBurstAt(now, burst)
	}

	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// expire drops limiters of tabs that went quiet. Caller holds mu.
func (p *pingLimiter) expire(now time.Time) {
	for id, c := range p.tabs {
		if now.Sub(c.lastSeen) > limiterIdle {
			delete(p.tabs, id)
		}
	}
}

func (p *pingLimiter) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.tabs)
}
