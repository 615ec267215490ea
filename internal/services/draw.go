package services

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// Drawer picks uniform-random subsets of a pool. Safe for concurrent use.
type Drawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawer returns a Drawer with a fixed seed, for reproducible draws.
func NewDrawer(seed1, seed2 uint64) *Drawer {
	return &Drawer{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewRandomDrawer returns a Drawer seeded from the runtime's random source.
func NewRandomDrawer() *Drawer {
	return NewDrawer(rand.Uint64(), rand.Uint64())
}

// Draw shuffles a copy of pool (Fisher-Yates) and returns its first n elements.
// n is clamped to [0, len(pool)]. pool is not modified.
func (d *Drawer) Draw(pool []string, n int) []string {
	n = max(0, min(n, len(pool)))
	if n == 0 {
		return []string{}
	}
	out := slices.Clone(pool)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}
