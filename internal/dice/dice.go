// Package dice provides the die rollers plugged into the game resolver.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	rand "math/rand/v2"
	"sync"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// Seeded is a deterministic roller. Two rollers built from the same seed
// produce the same faces in the same order, which is how both sides of a
// room agree on the shared die without exchanging it.
type Seeded struct {
	mu    sync.Mutex
	seed  int64
	rng   *rand.Rand
	draws int
}

// NewSeeded returns a roller whose stream is fixed by seed.
func NewSeeded(seed int64) *Seeded {
	u := uint64(seed)
	return &Seeded{
		seed: seed,
		rng:  rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64))),
	}
}

// Roll returns a face in 1..faces.
func (s *Seeded) Roll(faces int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	return s.rng.IntN(faces) + 1
}

// Skip advances the stream by n draws, for resuming a saved match.
func (s *Seeded) Skip(n, faces int) *Seeded {
	for range n {
		s.Roll(faces)
	}
	return s
}

// Seed returns the seed the roller was built from.
func (s *Seeded) Seed() int64 { return s.seed }

// Draws returns how many faces have been rolled.
func (s *Seeded) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

// mix is the splitmix64 finalizer, spreading a single seed over both PCG words.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Sequence is a roller returning fixed faces in order, cycling when
// exhausted. Intended for tests.
type Sequence struct {
	faces []int
	next  int
}

// NewSequence returns a roller that yields faces in order.
func NewSequence(faces ...int) *Sequence {
	return &Sequence{faces: faces}
}

// Roll implements game.Roller.
func (s *Sequence) Roll(int) int {
	if len(s.faces) == 0 {
		return 1
	}
	v := s.faces[s.next%len(s.faces)]
	s.next++
	return v
}

// Counting wraps a roller and counts calls.
type Counting struct {
	Roller interface{ Roll(faces int) int }
	Calls  int
}

// Roll implements game.Roller.
func (c *Counting) Roll(faces int) int {
	c.Calls++
	return c.Roller.Roll(faces)
}
