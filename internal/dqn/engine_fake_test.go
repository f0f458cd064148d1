package dqn_test

import (
	"os"

	"recurrent-dqn/internal/engine"
)

// trainCapture is a deep copy of one TrainStep's staging tensors. Frames are
// reduced to the first pixel of every temporal slot.
type trainCapture struct {
	target [][][]float32 // unroll x minibatch x actions
	filter [][][]float32
	cont   [][]float32 // unroll x minibatch
	frames [][]float32 // minibatch x framesPerForward
}

// fakeEngine returns a fixed Q row for every window and records every call.
type fakeEngine struct {
	q           []float32
	evalCalls   int
	lastCont    []bool
	lastWindows [][]float32 // per window, first pixel of each frame
	captures    []trainCapture
	iter        int
	cloneCalls  int
	cloned      *fakeEngine
}

func newFakeEngine(q ...float32) *fakeEngine {
	return &fakeEngine{q: q}
}

func (f *fakeEngine) EvaluateBatch(windows []engine.Window, cont []bool) ([][]float32, error) {
	f.evalCalls++
	f.lastCont = append([]bool(nil), cont...)
	f.lastWindows = make([][]float32, len(windows))
	for i, w := range windows {
		f.lastWindows[i] = make([]float32, len(w))
		for k, fr := range w {
			f.lastWindows[i][k] = float32(fr[0])
		}
	}
	out := make([][]float32, len(windows))
	for i := range out {
		out[i] = append([]float32(nil), f.q...)
	}
	return out, nil
}

func (f *fakeEngine) TrainStep(b *engine.Batch) error {
	c := trainCapture{
		target: make([][][]float32, b.Unroll()),
		filter: make([][][]float32, b.Unroll()),
		cont:   make([][]float32, b.Unroll()),
		frames: make([][]float32, b.Minibatch()),
	}
	for n := 0; n < b.Minibatch(); n++ {
		c.frames[n] = make([]float32, b.FramesPerForward())
		for s := 0; s < b.FramesPerForward(); s++ {
			c.frames[n][s] = b.FrameAt(n, s)[0]
		}
	}
	for u := 0; u < b.Unroll(); u++ {
		c.target[u] = make([][]float32, b.Minibatch())
		c.filter[u] = make([][]float32, b.Minibatch())
		c.cont[u] = make([]float32, b.Minibatch())
		for n := 0; n < b.Minibatch(); n++ {
			c.cont[u][n] = b.ContAt(u, n)
			c.target[u][n] = make([]float32, b.NumActions())
			c.filter[u][n] = make([]float32, b.NumActions())
			for a := 0; a < b.NumActions(); a++ {
				c.target[u][n][a] = b.TargetAt(u, n, a)
				c.filter[u][n][a] = b.FilterAt(u, n, a)
			}
		}
	}
	f.captures = append(f.captures, c)
	f.iter++
	return nil
}

func (f *fakeEngine) Clone() (engine.Engine, error) {
	f.cloneCalls++
	if f.cloned == nil {
		f.cloned = newFakeEngine(f.q...)
	}
	return f.cloned, nil
}

func (f *fakeEngine) Iteration() int { return f.iter }

func (f *fakeEngine) SaveWeights(path string) error { return os.WriteFile(path, []byte("w"), 0o644) }
func (f *fakeEngine) LoadWeights(path string) error { _, err := os.ReadFile(path); return err }
func (f *fakeEngine) SaveSolver(path string) error  { return os.WriteFile(path, []byte("s"), 0o644) }
func (f *fakeEngine) LoadSolver(path string) error  { _, err := os.ReadFile(path); return err }
