package sim

import "math/rand"

// RNG is the seeded random source that drives a simulation run.
// Two RNGs constructed from the same seed produce identical draw sequences,
// which is what makes seeded runs byte-for-byte reproducible.
//
// Thread-safety: NOT thread-safe. A Simulator owns its RNG for the whole run;
// overlapping runs must use separate RNG instances.
type RNG struct {
	src *rand.Rand
}

// NewRNG creates an RNG seeded with the given value.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Uniform returns a draw in [0, 1).
func (r *RNG) Uniform() float64 {
	return r.src.Float64()
}

// UniformPos returns a draw in (0, 1). It rejects the endpoints so callers
// can safely take logarithms of the result or its complement.
func (r *RNG) UniformPos() float64 {
	for {
		u := r.src.Float64()
		if u*(1-u) != 0 {
			return u
		}
	}
}

// Bool returns true with probability p.
func (r *RNG) Bool(p float64) bool {
	if p == 0 {
		return false
	}
	return r.Uniform() <= p
}

// Expo returns an exponential waiting time with the given rate.
func (r *RNG) Expo(rate float64) float64 {
	return r.src.ExpFloat64() / rate
}

// UniformInt returns an integer in [0, n], both endpoints inclusive.
// The draw is ⌊u·(n+1)⌋ with u in [0, 1); the clamp keeps the upper bound
// even if the uniform source ever yields a value rounding up to 1.
func (r *RNG) UniformInt(n int) int {
	if n == 0 {
		return 0
	}
	k := int(r.Uniform() * float64(n+1))
	if k > n {
		k = n
	}
	return k
}
