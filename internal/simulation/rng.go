package simulation

import (
	"hash/fnv"
	"math/rand"
)

// DeriveSeed derives a deterministic sub-stream seed from a base seed and a
// sequence of labels. Every stochastic entity (each environmental channel,
// each person, each motion stream) owns its own *rand.Rand seeded this way,
// so streams never depend on each other or on iteration order, and a chunked
// generator can seed chunks with (base, label, chunkIndex).
func DeriveSeed(base int64, labels ...any) int64 {
	x := uint64(base)
	for _, l := range labels {
		switch v := l.(type) {
		case string:
			h := fnv.New64a()
			_, _ = h.Write([]byte(v))
			x ^= h.Sum64()
		case int:
			x ^= uint64(int64(v)) * 0x9e3779b97f4a7c15
		case int64:
			x ^= uint64(v) * 0x9e3779b97f4a7c15
		}
		x = splitmix64(x)
	}
	return int64(splitmix64(x))
}

// splitmix64 is the finalizer from the SplitMix64 generator. It gives good
// avalanche behavior, so nearby labels produce unrelated seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// newRand returns a private RNG for the given seed. The shared package-level
// generator in math/rand is never used.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// intBetween draws an integer from [lo, hi] inclusive.
func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
