// Package randsrc isolates the random draws behind the synthetic search results
// and crawler statuses so callers can seed them.
package randsrc

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the random draw capability consumed by generators and simulators.
// Implementations must be safe for concurrent use.
type Source interface {
	// Float64 returns a value in [0.0, 1.0)
	Float64() float64
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Uint64 returns a uniformly distributed value, used to derive child sources
	Uint64() uint64
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Source seeded with seed. A zero seed draws one from the clock.
func New(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Derive returns a new independent Source seeded from parent.
// Drawing child seeds in a fixed order keeps parallel work reproducible.
func Derive(parent Source) Source {
	seed := parent.Uint64()
	if seed == 0 {
		seed = 1
	}
	return New(seed)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Uint64()
}
