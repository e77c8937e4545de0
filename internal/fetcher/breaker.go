package fetcher

import (
	"context"
	"errors"
	"net/textproto"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrHostUnavailable is returned without contacting a host whose breaker is open.
var ErrHostUnavailable = errors.New("fetcher: host temporarily unavailable")

// BreakerState is the state of one host's breaker.
type BreakerState int

const (
	// BreakerClosed lets downloads through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects downloads until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets one probe through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerOptions configures per-host breakers. Zero values select defaults.
type BreakerOptions struct {
	Threshold int           // consecutive failures that open a breaker; default 5
	Cooldown  time.Duration // time an open breaker waits before a probe; default 30s
}

type hostBreaker struct {
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool // a half-open probe is in flight
}

// Breakers tracks download health per host so a dead workbook server fails
// fast instead of burning a full retry cycle on every request.
type Breakers struct {
	opts BreakerOptions
	now  func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostBreaker
}

// NewBreakers creates an empty breaker set.
func NewBreakers(opts BreakerOptions) *Breakers {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	return &Breakers{opts: opts, now: time.Now, hosts: make(map[string]*hostBreaker)}
}

// State returns the breaker state for host.
func (b *Breakers) State(host string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb, ok := b.hosts[host]
	if !ok {
		return BreakerClosed
	}
	if hb.state == BreakerOpen && b.now().Sub(hb.openedAt) >= b.opts.Cooldown {
		return BreakerHalfOpen
	}
	return hb.state
}

func (b *Breakers) allow(host string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb, ok := b.hosts[host]
	if !ok {
		return nil
	}
	switch hb.state {
	case BreakerOpen:
		if b.now().Sub(hb.openedAt) < b.opts.Cooldown {
			return ErrHostUnavailable
		}
		hb.state = BreakerHalfOpen
		hb.probing = true
		return nil
	case BreakerHalfOpen:
		if hb.probing {
			return ErrHostUnavailable
		}
		hb.probing = true
		return nil
	default:
		return nil
	}
}

// record counts err against host and ends any half-open probe. Missing
// resources and cancelled requests are treated as successes, except that a
// cancelled probe leaves the breaker half-open.
func (b *Breakers) record(host string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb, ok := b.hosts[host]
	if !ok {
		hb = &hostBreaker{}
		b.hosts[host] = hb
	}
	hb.probing = false

	if hb.state == BreakerHalfOpen && errors.Is(err, context.Canceled) {
		return
	}
	if !countsAsFailure(err) {
		hb.state = BreakerClosed
		hb.failures = 0
		return
	}

	hb.failures++
	if hb.state == BreakerHalfOpen || hb.failures >= b.opts.Threshold {
		if hb.state != BreakerOpen {
			zap.L().Warn("fetcher: host breaker opened", zap.String("host", host), zap.Int("failures", hb.failures))
		}
		hb.state = BreakerOpen
		hb.openedAt = b.now()
	}
}

func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.NotFound() {
		return false
	}
	var te *textproto.Error
	if errors.As(err, &te) && te.Code == 550 {
		return false
	}
	return true
}
