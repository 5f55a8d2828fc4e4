package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Tables use this in tests and replays so a seed reproduces every shuffle.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewSeeded returns a generator seeded from the operating system's entropy
// source together with the seed it used, so a live table can be replayed.
func NewSeeded() (*rand.Rand, int64) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		seed := rand.Int64()
		return New(seed), seed
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	return New(seed), seed
}

// Derive returns a child generator for stream n of a parent seed. Each table
// in a simulation gets its own stream.
func Derive(seed int64, n int) *rand.Rand {
	return New(int64(mix(uint64(seed) + uint64(n)*goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
