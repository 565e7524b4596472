/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"math/rand/v2"
	"sync"
)

// randomizer serializes access to a seeded generator. With a nil generator it
// falls back to the goroutine-safe top-level functions of math/rand/v2.
type randomizer struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRandomizer(r *rand.Rand) *randomizer {
	return &randomizer{r: r}
}

func (rz *randomizer) IntN(n int) int {
	if rz == nil || rz.r == nil {
		return rand.IntN(n)
	}

	rz.mu.Lock()
	defer rz.mu.Unlock()

	return rz.r.IntN(n)
}

func (rz *randomizer) Perm(n int) []int {
	if rz == nil || rz.r == nil {
		return rand.Perm(n)
	}

	rz.mu.Lock()
	defer rz.mu.Unlock()

	return rz.r.Perm(n)
}

func (rz *randomizer) team() Team {
	if rz.IntN(2) == 0 {
		return TeamRed
	}

	return TeamBlue
}
