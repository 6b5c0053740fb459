package helper

import (
	"sync"
	"time"
)

// FakeClock is a tradeorder.Clock that returns a fixed time, advanced by Step on every call.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFakeClock creates a FakeClock starting at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now implements tradeorder.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.Step)

	return now
}

// ScriptedRandomizer is a tradeorder.Randomizer that replays scripted values.
// IntN returns the next scripted int modulo n, or 0 once the script is used up.
// Perm returns the next scripted permutation, or the identity once the script is used up.
type ScriptedRandomizer struct {
	mu    sync.Mutex
	ints  []int
	perms [][]int
}

// NewScriptedRandomizer creates a ScriptedRandomizer replaying ints for IntN calls.
func NewScriptedRandomizer(ints ...int) *ScriptedRandomizer {
	return &ScriptedRandomizer{ints: ints}
}

// WithPerms adds permutations to replay for Perm calls.
func (r *ScriptedRandomizer) WithPerms(perms ...[]int) *ScriptedRandomizer {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.perms = append(r.perms, perms...)

	return r
}

// IntN implements tradeorder.Randomizer.
func (r *ScriptedRandomizer) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ints) == 0 {
		return 0
	}

	next := r.ints[0]
	r.ints = r.ints[1:]

	return next % n
}

// Perm implements tradeorder.Randomizer.
func (r *ScriptedRandomizer) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.perms) > 0 {
		next := r.perms[0]
		r.perms = r.perms[1:]

		return next
	}

	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}

	return identity
}
