// Package random provides the injectable randomness used by the exchange-rate
// drift, confirmation jitter, settlement outcome and identifier suffixes.
package random

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Source produces pseudo random values.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a goroutine-safe source. A zero seed draws the seed from
// the runtime's random generator.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base36 returns n characters drawn uniformly from [0-9a-z].
func Base36(src Source, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[src.IntN(len(base36))])
	}
	return b.String()
}

// Sequence replays a fixed list of floats. IntN scales the next float by n so a
// script can steer both kinds of draws. Once exhausted it keeps returning the
// last value, or zero when empty.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence builds a scripted source.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Push appends further values to the script.
func (s *Sequence) Push(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
}

// Float64 returns the next scripted value.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	idx := s.next
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	} else {
		s.next++
	}
	return s.values[idx]
}

// IntN returns floor(next * n).
func (s *Sequence) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
