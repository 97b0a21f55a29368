package service

import (
	"math/rand/v2"
	"sync"
	"time"
)

type options struct {
	now  func() time.Time
	rand *rand.Rand
}

// Option customizes a service.
type Option func(*options)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRand sets the random source used to generate demo data.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:  time.Now,
		rand: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	return &lockedRand{r: r}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int64N(n)
}
