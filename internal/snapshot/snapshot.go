// Package snapshot ties model weights, solver state, and replay memory
// together as one logical checkpoint, and handles discovery and pruning of
// checkpoint files on disk.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/replay"
)

// Artifact extensions. A checkpoint at iteration N is the file family
// prefix_iter_N.{weights,solverstate,replaymemory} and is complete only when
// all three exist.
const (
	WeightsExt = ".weights"
	SolverExt  = ".solverstate"
	MemoryExt  = ".replaymemory"
)

// Coordinator snapshots and restores the (weights, solver state, replay
// memory) tuple as a unit.
type Coordinator struct {
	eng engine.Engine
	mem *replay.Memory
	log zerolog.Logger
}

func NewCoordinator(eng engine.Engine, mem *replay.Memory, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		eng: eng,
		mem: mem,
		log: logger.With().Str("component", "snapshot").Logger(),
	}
}

// Snapshot persists weights and solver state tagged with the engine's current
// iteration, optionally the replay memory under the same tag, and optionally
// prunes every artifact under the prefix with a strictly smaller iteration.
func (c *Coordinator) Snapshot(prefix string, removeOld, withMemory bool) error {
	iter := c.eng.Iteration()
	weights, solver, memory := ArtifactPaths(prefix, iter)
	if err := c.eng.SaveWeights(weights); err != nil {
		return fmt.Errorf("snapshot: save weights: %w", err)
	}
	if err := c.eng.SaveSolver(solver); err != nil {
		return fmt.Errorf("snapshot: save solver state: %w", err)
	}
	if withMemory {
		c.log.Info().Str("path", memory).Int("transitions", c.mem.Size()).Msg("snapshotting replay memory")
		if err := c.mem.Save(memory); err != nil {
			return fmt.Errorf("snapshot: save replay memory: %w", err)
		}
	}
	if removeOld {
		removed, err := RemoveOld(prefix, iter)
		if err != nil {
			return err
		}
		if removed > 0 {
			c.log.Info().Int("files", removed).Int("iteration", iter).Msg("pruned old snapshots")
		}
	}
	c.log.Info().Int("iteration", iter).Bool("memory", withMemory).Msg("snapshot complete")
	return nil
}

// Restore loads the complete checkpoint at iteration iter into the engine and
// replay memory.
func (c *Coordinator) Restore(prefix string, iter int) error {
	weights, solver, memory := ArtifactPaths(prefix, iter)
	if err := c.eng.LoadWeights(weights); err != nil {
		return fmt.Errorf("snapshot: restore weights: %w", err)
	}
	if err := c.eng.LoadSolver(solver); err != nil {
		return fmt.Errorf("snapshot: restore solver state: %w", err)
	}
	if err := c.mem.Load(memory); err != nil {
		return fmt.Errorf("snapshot: restore replay memory: %w", err)
	}
	c.log.Info().Int("iteration", iter).Int("transitions", c.mem.Size()).Msg("restored snapshot")
	return nil
}

// ArtifactPaths returns the three artifact paths of the checkpoint at
// iteration iter.
func ArtifactPaths(prefix string, iter int) (weights, solver, memory string) {
	base := fmt.Sprintf("%s_iter_%d", prefix, iter)
	return base + WeightsExt, base + SolverExt, base + MemoryExt
}

// FindLatest scans for solver-state files under the prefix and returns the
// highest iteration whose three artifacts all exist. A checkpoint missing any
// artifact is never considered resumable. Returns -1 when no complete
// checkpoint is found.
func FindLatest(prefix string) (int, error) {
	dir, stem := splitPrefix(prefix)
	re := regexp.MustCompile("^" + regexp.QuoteMeta(stem) + `_iter_([0-9]+)` + regexp.QuoteMeta(SolverExt) + "$")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return -1, fmt.Errorf("snapshot: scan %s: %w", dir, err)
	}
	latest := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		iter, err := strconv.Atoi(m[1])
		if err != nil || iter <= latest {
			continue
		}
		weights, _, memory := ArtifactPaths(prefix, iter)
		if isRegular(weights) && isRegular(memory) {
			latest = iter
		}
	}
	return latest, nil
}

// RemoveOld deletes every artifact under the prefix whose iteration is
// strictly less than minIter, across all three artifact kinds. Returns the
// number of files removed.
func RemoveOld(prefix string, minIter int) (int, error) {
	dir, stem := splitPrefix(prefix)
	re := regexp.MustCompile("^" + regexp.QuoteMeta(stem) + `_iter_([0-9]+)(` +
		regexp.QuoteMeta(WeightsExt) + "|" + regexp.QuoteMeta(SolverExt) + "|" + regexp.QuoteMeta(MemoryExt) + ")$")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("snapshot: scan %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		iter, err := strconv.Atoi(m[1])
		if err != nil || iter >= minIter {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("snapshot: remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func splitPrefix(prefix string) (dir, stem string) {
	dir, stem = filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	return dir, stem
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
