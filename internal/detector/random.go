package detector

import (
	"math/rand"
	"sync"
	"time"
)

// Random is a mutex-guarded source shared by detectors. A fixed seed makes
// a run reproducible.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom creates a source. Seed 0 seeds from the clock.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{r: rand.New(rand.NewSource(seed))} //nolint:gosec // simulation, not security
}

// Intn returns a value in [0, n).
func (r *Random) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}

// Float64 returns a value in [0, 1).
func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// Pick returns a uniformly chosen element of choices.
func (r *Random) Pick(choices []string) string {
	return choices[r.Intn(len(choices))]
}
