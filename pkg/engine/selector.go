package engine

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Selector supplies the random choices made during a simulation: which
// generic narrative to emit and how long the simulated agents take.
type Selector interface {
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
	// Int64N returns a value in [0, n). n must be positive.
	Int64N(n int64) int64
}

type lockedSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededSelector returns a Selector whose sequence is fully determined by seed.
func NewSeededSelector(seed uint64) Selector {
	return &lockedSelector{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSelector returns a Selector seeded from the runtime's entropy source.
func NewRandomSelector() Selector {
	return &lockedSelector{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (s *lockedSelector) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

func (s *lockedSelector) Int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Int64N(n)
}

// drawDelay picks a duration in [lo, hi]. An empty or inverted range yields lo.
func drawDelay(sel Selector, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(sel.Int64N(int64(hi-lo)+1))
}
