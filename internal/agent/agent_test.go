package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler keeps the message of every record logged at Info or above.
type recordingHandler struct {
	mu       *sync.Mutex
	messages *[]string
}

func newRecordingLogger() (*slog.Logger, func() []string) {
	h := recordingHandler{mu: &sync.Mutex{}, messages: &[]string{}}
	return slog.New(h), func() []string {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]string(nil), *h.messages...)
	}
}

func (h recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.messages = append(*h.messages, r.Message)
	return nil
}

func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordingHandler) WithGroup(string) slog.Handler      { return h }

// scriptedRand replays fixed values so sampled output can be asserted exactly.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (s *scriptedRand) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestAgent(rng Rand) *Agent {
	return New(newTestLogger(), WithRand(rng), WithSleep(noSleep))
}

func newSeededAgent(seed uint64) *Agent {
	return newTestAgent(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

var errCancelled = errors.New("cancelled")
