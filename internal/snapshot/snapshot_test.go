package snapshot_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
	"recurrent-dqn/internal/replay"
	"recurrent-dqn/internal/snapshot"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func touchCheckpoint(t *testing.T, prefix string, iter int, exts ...string) {
	t.Helper()
	weights, solver, memory := snapshot.ArtifactPaths(prefix, iter)
	byExt := map[string]string{
		snapshot.WeightsExt: weights,
		snapshot.SolverExt:  solver,
		snapshot.MemoryExt:  memory,
	}
	for _, ext := range exts {
		touch(t, byExt[ext])
	}
}

func TestFindLatestSkipsIncomplete(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "drqn")

	touchCheckpoint(t, prefix, 10, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)
	// Iteration 20 has no replay memory, so 10 stays the latest resumable.
	touchCheckpoint(t, prefix, 20, snapshot.WeightsExt, snapshot.SolverExt)

	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, 10, latest)
}

func TestFindLatestEmptyDir(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "drqn")
	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, -1, latest)
}

func TestFindLatestMissingDir(t *testing.T) {
	_, err := snapshot.FindLatest(filepath.Join(t.TempDir(), "nope", "drqn"))
	require.Error(t, err)
}

func TestFindLatestIgnoresOtherPrefixes(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "drqn")
	touchCheckpoint(t, filepath.Join(dir, "other"), 30, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)
	touchCheckpoint(t, prefix, 5, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)

	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, 5, latest)
}

func TestRemoveOldPrunesStrictlyOlder(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "drqn")
	touchCheckpoint(t, prefix, 10, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)
	touchCheckpoint(t, prefix, 20, snapshot.WeightsExt, snapshot.SolverExt)
	touchCheckpoint(t, prefix, 30, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)

	removed, err := snapshot.RemoveOld(prefix, 30)
	require.NoError(t, err)
	require.Equal(t, 5, removed)

	weights, solver, memory := snapshot.ArtifactPaths(prefix, 30)
	for _, p := range []string{weights, solver, memory} {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, 30, latest)
}

func TestCoordinatorRoundTrip(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "drqn")
	rng := rand.New(rand.NewSource(5))

	eng, err := engine.NewLinear(3, 0.0001)
	require.NoError(t, err)
	mem, err := replay.NewMemory(100, rng)
	require.NoError(t, err)

	fa, fb := new(frame.Frame), new(frame.Frame)
	fa[0], fb[0] = 1, 2
	mem.Append(replay.Episode{
		{Frame: fa, Action: env.Action(1), Reward: 0.5, Next: fb},
		{Frame: fb, Action: env.Action(2), Reward: -1},
	})

	fr := new(frame.Frame)
	for i := range fr {
		fr[i] = 255
	}
	b := engine.NewBatch(1, 1, 1, 3)
	b.SetFrame(0, 0, fr)
	b.SetFilter(0, 0, 1, 1)
	b.SetTarget(0, 0, 1, 1.0)
	for i := 0; i < 7; i++ {
		require.NoError(t, eng.TrainStep(b))
	}

	coord := snapshot.NewCoordinator(eng, mem, zerolog.Nop())
	require.NoError(t, coord.Snapshot(prefix, false, true))

	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, 7, latest)

	restoredEng, err := engine.NewLinear(3, 0.0001)
	require.NoError(t, err)
	restoredMem, err := replay.NewMemory(100, rng)
	require.NoError(t, err)
	restored := snapshot.NewCoordinator(restoredEng, restoredMem, zerolog.Nop())
	require.NoError(t, restored.Restore(prefix, latest))

	require.Equal(t, 7, restoredEng.Iteration())
	require.Equal(t, 1, restoredMem.Len())
	require.Equal(t, 2, restoredMem.Size())
	ep := restoredMem.Episode(0)
	require.Equal(t, float32(0.5), ep[0].Reward)
	require.True(t, ep[1].Terminal())

	window := []engine.Window{{fr}}
	want, err := eng.EvaluateBatch(window, []bool{true})
	require.NoError(t, err)
	got, err := restoredEng.EvaluateBatch(window, []bool{true})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSnapshotRemoveOldKeepsCurrent(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "drqn")

	eng, err := engine.NewLinear(2, 0.0001)
	require.NoError(t, err)
	mem, err := replay.NewMemory(10, rand.New(rand.NewSource(6)))
	require.NoError(t, err)
	coord := snapshot.NewCoordinator(eng, mem, zerolog.Nop())

	touchCheckpoint(t, prefix, 0, snapshot.WeightsExt, snapshot.SolverExt, snapshot.MemoryExt)
	// The engine is at iteration 0 too, so pruning must not touch the
	// freshly written family.
	require.NoError(t, coord.Snapshot(prefix, true, true))

	latest, err := snapshot.FindLatest(prefix)
	require.NoError(t, err)
	require.Equal(t, 0, latest)
}
