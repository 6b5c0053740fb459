package tradeorder

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Randomizer is the uniform random choice and permutation primitive used for endpoint ordering
// and order synthesis. Implementations must be safe for concurrent use.
type Randomizer interface {
	// IntN returns a uniformly distributed int in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Perm returns a uniformly random permutation of [0, n).
	Perm(n int) []int
}

// SeededRandomizer is a Randomizer backed by a PCG source. The same seed yields the same sequence.
type SeededRandomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer creates a SeededRandomizer from the given seed.
func NewRandomizer(seed uint64) *SeededRandomizer {
	return &SeededRandomizer{
		rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// NewTimeSeededRandomizer creates a SeededRandomizer seeded from the current time.
func NewTimeSeededRandomizer() *SeededRandomizer {
	return NewRandomizer(uint64(time.Now().UnixNano()))
}

// IntN returns a uniformly distributed int in [0, n).
func (r *SeededRandomizer) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rng.IntN(n)
}

// Perm returns a uniformly random permutation of [0, n).
func (r *SeededRandomizer) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rng.Perm(n)
}

// RandomOrderNbr returns an order number of OrderNbrLength uppercase alphanumeric characters.
func RandomOrderNbr(r Randomizer) string {
	var sb strings.Builder
	sb.Grow(OrderNbrLength)

	for range OrderNbrLength {
		sb.WriteByte(orderNbrAlphabet[r.IntN(len(orderNbrAlphabet))])
	}

	return sb.String()
}

// RandomQuantity returns an order quantity in [1, 100].
func RandomQuantity(r Randomizer) int {
	return r.IntN(100) + 1
}

// RandomOrderType returns buy or sell with equal probability.
func RandomOrderType(r Randomizer) OrderType {
	return OrderTypes[r.IntN(len(OrderTypes))]
}

// Clock supplies the timestamps written by the transactions.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock reading the wall clock in UTC.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
