// Package replay stores agent experience as whole episodes under a bounded
// transition count and persists it in a compressed binary format.
package replay

import (
	"errors"
	"math/rand"

	"github.com/gammazero/deque"
)

// Memory is an ordered, capacity-bounded collection of episodes, oldest
// first. The bound is expressed in transitions, not episodes; when an append
// pushes the total transition count past capacity, whole episodes are evicted
// from the oldest end until it fits. Episodes are never partially evicted.
//
// Memory is not safe for concurrent use.
type Memory struct {
	episodes *deque.Deque[Episode]
	size     int
	capacity int
	rng      *rand.Rand
}

// NewMemory returns an empty memory bounded to capacity transitions. The rng
// drives episode sampling; pass nil for an unseeded source.
func NewMemory(capacity int, rng *rand.Rand) (*Memory, error) {
	if capacity <= 0 {
		return nil, errors.New("capacity must be greater than zero")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Memory{
		episodes: deque.New[Episode](),
		capacity: capacity,
		rng:      rng,
	}, nil
}

// Append records a completed episode and evicts from the front while the
// stored transition count exceeds capacity.
func (m *Memory) Append(ep Episode) {
	m.size += len(ep)
	m.episodes.PushBack(ep)
	for m.size > m.capacity {
		evicted := m.episodes.PopFront()
		m.size -= len(evicted)
	}
}

// Episode returns the i-th stored episode, oldest first.
func (m *Memory) Episode(i int) Episode {
	return m.episodes.At(i)
}

// Len returns the number of stored episodes.
func (m *Memory) Len() int {
	return m.episodes.Len()
}

// Size returns the number of stored transitions.
func (m *Memory) Size() int {
	return m.size
}

// Capacity returns the transition bound.
func (m *Memory) Capacity() int {
	return m.capacity
}

// SampleEpisodeIndices returns up to k distinct episode indices chosen
// uniformly at random. If fewer than k episodes are stored, every index is
// returned.
func (m *Memory) SampleEpisodeIndices(k int) []int {
	perm := m.rng.Perm(m.episodes.Len())
	if len(perm) > k {
		perm = perm[:k]
	}
	return perm
}

// Clear empties the memory and resets the transition counter.
func (m *Memory) Clear() {
	m.episodes.Clear()
	m.size = 0
}
