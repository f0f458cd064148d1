package replay

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
)

// Wire format, gzip-compressed and little-endian:
//
//	int32 episodeCount
//	episodeCount x int32 episodeLength
//	then for every transition in episode order:
//	  frame bytes (84*84 x uint8), int32 action, float32 reward
//
// Next-frame links are not stored; Load rebuilds them from intra-episode
// adjacency. There is no version header, so format changes are breaking.

// Save writes the memory's contents to path.
func (m *Memory) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("replay: create %s: %w", path, err)
	}
	zw := gzip.NewWriter(f)
	if err := m.encode(zw); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("replay: flush %s: %w", path, err)
	}
	return f.Close()
}

func (m *Memory) encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int32(m.episodes.Len())); err != nil {
		return fmt.Errorf("replay: write episode count: %w", err)
	}
	for i := 0; i < m.episodes.Len(); i++ {
		if err := binary.Write(w, binary.LittleEndian, int32(len(m.episodes.At(i)))); err != nil {
			return fmt.Errorf("replay: write episode length: %w", err)
		}
	}
	for i := 0; i < m.episodes.Len(); i++ {
		for _, t := range m.episodes.At(i) {
			if _, err := w.Write(t.Frame[:]); err != nil {
				return fmt.Errorf("replay: write frame: %w", err)
			}
			if err := binary.Write(w, binary.LittleEndian, int32(t.Action)); err != nil {
				return fmt.Errorf("replay: write action: %w", err)
			}
			if err := binary.Write(w, binary.LittleEndian, t.Reward); err != nil {
				return fmt.Errorf("replay: write reward: %w", err)
			}
		}
	}
	return nil
}

// Load replaces the memory's contents with the episodes stored at path,
// rewiring next-frame links and restoring the transition counter. The memory
// is cleared before reading; a truncated or malformed stream surfaces as an
// error and leaves the memory cleared. The capacity bound is enforced only on
// Append, so a file written under a larger capacity loads in full and shrinks
// on the next Append.
func (m *Memory) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("replay: open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("replay: decompress %s: %w", path, err)
	}
	defer zr.Close()

	m.Clear()
	return m.decode(zr)
}

func (m *Memory) decode(r io.Reader) error {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("replay: read episode count: %w", err)
	}
	if count < 0 {
		return fmt.Errorf("replay: invalid episode count %d", count)
	}
	lengths := make([]int32, count)
	for i := range lengths {
		if err := binary.Read(r, binary.LittleEndian, &lengths[i]); err != nil {
			return fmt.Errorf("replay: read episode length: %w", err)
		}
		if lengths[i] < 0 {
			return fmt.Errorf("replay: invalid episode length %d", lengths[i])
		}
	}
	for _, n := range lengths {
		ep := make(Episode, n)
		for j := range ep {
			fr := new(frame.Frame)
			if _, err := io.ReadFull(r, fr[:]); err != nil {
				return fmt.Errorf("replay: read frame: %w", err)
			}
			ep[j].Frame = fr
			if j > 0 {
				ep[j-1].Next = fr
			}
			var action int32
			if err := binary.Read(r, binary.LittleEndian, &action); err != nil {
				return fmt.Errorf("replay: read action: %w", err)
			}
			ep[j].Action = env.Action(action)
			if err := binary.Read(r, binary.LittleEndian, &ep[j].Reward); err != nil {
				return fmt.Errorf("replay: read reward: %w", err)
			}
		}
		m.episodes.PushBack(ep)
		m.size += len(ep)
	}
	return nil
}
