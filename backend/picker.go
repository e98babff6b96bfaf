package backend

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyPool is returned by a Picker when there are no endpoints to pick from.
var ErrEmptyPool = errors.New("endpoint pool is empty")

// Picker selects one endpoint from a pool of candidates.
type Picker interface {
	// Pick returns one of the endpoints in pool. It returns ErrEmptyPool if
	// pool has no elements.
	Pick(pool []Endpoint) (Endpoint, error)
}

// RandomPicker is a Picker that selects endpoints uniformly at random.
type RandomPicker struct {
	// IntN returns a random number in [0, n). If it is nil, the top-level
	// function of math/rand/v2 is used.
	IntN func(n int) int
}

// Pick returns one of the endpoints in pool, chosen uniformly at random.
func (p RandomPicker) Pick(pool []Endpoint) (Endpoint, error) {
	if len(pool) == 0 {
		return Endpoint{}, ErrEmptyPool
	}

	intN := p.IntN
	if intN == nil {
		intN = rand.IntN //nolint:gosec // does not need to be cryptographically secure
	}

	index := intN(len(pool))
	if index < 0 || index >= len(pool) {
		// Only a broken IntN gets here; clamp rather than index out of bounds.
		index = 0
	}

	return pool[index], nil
}
