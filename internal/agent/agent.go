package agent

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the random source behind every sampled value.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Delays holds the simulated latency of each stage.
type Delays struct {
	Search   time.Duration
	Analyze  time.Duration
	Download time.Duration
}

// DefaultDelays mirrors the pace of the original demo.
var DefaultDelays = Delays{
	Search:   2 * time.Second,
	Analyze:  1 * time.Second,
	Download: 1500 * time.Millisecond,
}

// Agent runs the three simulated stages: discovery, analysis and download.
// It is safe for concurrent use; access to the random source is serialized.
type Agent struct {
	logger *slog.Logger
	delays Delays
	sleep  SleepFunc

	mu  sync.Mutex
	rng Rand
}

type Option func(*Agent)

func WithRand(rng Rand) Option {
	return func(a *Agent) { a.rng = rng }
}

func WithDelays(d Delays) Option {
	return func(a *Agent) { a.delays = d }
}

func WithSleep(fn SleepFunc) Option {
	return func(a *Agent) { a.sleep = fn }
}

func New(logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		logger: logger,
		delays: DefaultDelays,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// intBetween returns a uniform integer in [lo, hi].
func (a *Agent) intBetween(lo, hi int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo + a.rng.IntN(hi-lo+1)
}

func (a *Agent) float() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}

// sample draws k distinct elements of pool with a partial Fisher-Yates shuffle.
func (a *Agent) sample(pool []Category, k int) []Category {
	a.mu.Lock()
	defer a.mu.Unlock()

	work := make([]Category, len(pool))
	copy(work, pool)
	for i := 0; i < k; i++ {
		j := i + a.rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:k:k]
}

func (a *Agent) pick(options []string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return options[a.rng.IntN(len(options))]
}
