package balance

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniformly distributed values in [0,1)
type RandomSource interface {
	Float64() float64
}

// mathRandSource guards a *rand.Rand, which is not safe for concurrent use
type mathRandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a process-seeded source backed by math/rand/v2
func NewRandomSource() RandomSource {
	return &mathRandSource{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededRandomSource returns a reproducible source
func NewSeededRandomSource(seed1, seed2 uint64) RandomSource {
	return &mathRandSource{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *mathRandSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
