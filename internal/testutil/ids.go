package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SeqID returns the nth deterministic test id:
//
//	SeqID(1) // 00000000-0000-7000-8000-000000000001
//
// The ids carry the UUIDv7 version and variant bits and sort in n order.
func SeqID(n uint64) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-7000-8000-%012x", n))
}

// SequenceIDGenerator hands out SeqID(1), SeqID(2), ... in order.
//
// This enables byte-identical golden output across runs, since the ids that
// a scenario's flows receive no longer depend on the wall clock.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu  sync.Mutex
	seq uint64
}

// NewSequenceIDGenerator creates a generator whose first id is SeqID(1).
func NewSequenceIDGenerator() *SequenceIDGenerator {
	return &SequenceIDGenerator{}
}

// NewID implements registry.IDGenerator.
func (g *SequenceIDGenerator) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return SeqID(g.seq)
}

// Reset rewinds the sequence. The next id is SeqID(1) again.
func (g *SequenceIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedIDGenerator returns predetermined ids in order.
//
// Panics once all ids have been consumed, to catch tests that create more
// flows than they planned for.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
func NewFixedIDGenerator(ids ...uuid.UUID) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// NewID implements registry.IDGenerator.
func (g *FixedIDGenerator) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
