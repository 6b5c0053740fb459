package tradeorder

import (
	"regexp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SeededRandomizer_Same_Seed_Yields_Same_Sequence(t *testing.T) {
	// arrange
	first := NewRandomizer(42)
	second := NewRandomizer(42)

	// act & assert
	for range 20 {
		assert.Equal(t, first.IntN(1000), second.IntN(1000))
	}
	assert.Equal(t, first.Perm(7), second.Perm(7))
}

func Test_SeededRandomizer_Perm_Contains_Every_Index_Once(t *testing.T) {
	// arrange
	randomizer := NewRandomizer(7)

	// act
	perm := randomizer.Perm(5)

	// assert
	sort.Ints(perm)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, perm)
}

func Test_RandomOrderNbr_Has_14_Uppercase_Alphanumerics(t *testing.T) {
	// arrange
	randomizer := NewRandomizer(1)
	pattern := regexp.MustCompile(`^[A-Z0-9]{14}$`)

	// act & assert
	for range 100 {
		assert.Regexp(t, pattern, RandomOrderNbr(randomizer))
	}
}

func Test_RandomQuantity_Stays_Within_1_And_100(t *testing.T) {
	// arrange
	randomizer := NewRandomizer(2)

	// act & assert
	for range 1000 {
		qty := RandomQuantity(randomizer)
		assert.GreaterOrEqual(t, qty, 1)
		assert.LessOrEqual(t, qty, 100)
	}
}

func Test_RandomOrderType_Yields_Both_Sides(t *testing.T) {
	// arrange
	randomizer := NewRandomizer(3)
	seen := map[OrderType]int{}

	// act
	for range 200 {
		seen[RandomOrderType(randomizer)]++
	}

	// assert
	assert.Len(t, seen, 2)
	assert.Positive(t, seen[OrderTypeBuy])
	assert.Positive(t, seen[OrderTypeSell])
}
