package engine

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"recurrent-dqn/internal/frame"
)

// Linear is a reference Engine: an independent linear value estimate per
// action over the newest frame of each window. It has no recurrent state, so
// continuation flags are accepted and ignored. It exists to exercise the full
// engine contract end to end; a real deployment substitutes a neural engine
// behind the same interface.
type Linear struct {
	numActions int
	lr         float32
	weights    [][]float32 // numActions x frame.DataSize
	biases     []float32
	iter       int
}

func NewLinear(numActions int, learningRate float32) (*Linear, error) {
	if numActions <= 0 {
		return nil, errors.New("numActions must be greater than zero")
	}
	if learningRate <= 0 {
		return nil, errors.New("learning rate must be greater than zero")
	}
	weights := make([][]float32, numActions)
	for a := range weights {
		weights[a] = make([]float32, frame.DataSize)
	}
	return &Linear{
		numActions: numActions,
		lr:         learningRate,
		weights:    weights,
		biases:     make([]float32, numActions),
	}, nil
}

func (l *Linear) EvaluateBatch(windows []Window, cont []bool) ([][]float32, error) {
	if len(cont) != len(windows) {
		return nil, fmt.Errorf("engine: %d continuation flags for %d windows", len(cont), len(windows))
	}
	out := make([][]float32, len(windows))
	for i, w := range windows {
		if len(w) == 0 {
			return nil, errors.New("engine: empty frame window")
		}
		newest := w[len(w)-1]
		q := make([]float32, l.numActions)
		for a := 0; a < l.numActions; a++ {
			sum := l.biases[a]
			wa := l.weights[a]
			for k, px := range newest {
				sum += wa[k] * float32(px) / 255
			}
			q[a] = sum
		}
		out[i] = q
	}
	return out, nil
}

func (l *Linear) TrainStep(b *Batch) error {
	if b.NumActions() != l.numActions {
		return fmt.Errorf("engine: batch has %d actions, engine has %d", b.NumActions(), l.numActions)
	}
	for u := 0; u < b.Unroll(); u++ {
		for n := 0; n < b.Minibatch(); n++ {
			pixels := b.TrainedFrameAt(n, u)
			for a := 0; a < l.numActions; a++ {
				if b.FilterAt(u, n, a) == 0 {
					continue
				}
				pred := l.biases[a]
				wa := l.weights[a]
				for k, px := range pixels {
					pred += wa[k] * px / 255
				}
				grad := l.lr * (b.TargetAt(u, n, a) - pred)
				for k, px := range pixels {
					wa[k] += grad * px / 255
				}
				l.biases[a] += grad
			}
		}
	}
	l.iter++
	return nil
}

func (l *Linear) Clone() (Engine, error) {
	clone := &Linear{
		numActions: l.numActions,
		lr:         l.lr,
		weights:    make([][]float32, l.numActions),
		biases:     append([]float32(nil), l.biases...),
		iter:       l.iter,
	}
	for a := range l.weights {
		clone.weights[a] = append([]float32(nil), l.weights[a]...)
	}
	return clone, nil
}

func (l *Linear) Iteration() int {
	return l.iter
}

type linearWeights struct {
	NumActions int
	Weights    [][]float32
	Biases     []float32
}

type linearSolver struct {
	Iteration    int
	LearningRate float32
}

func (l *Linear) SaveWeights(path string) error {
	return writeGob(path, linearWeights{
		NumActions: l.numActions,
		Weights:    l.weights,
		Biases:     l.biases,
	})
}

func (l *Linear) LoadWeights(path string) error {
	var w linearWeights
	if err := readGob(path, &w); err != nil {
		return err
	}
	if w.NumActions != l.numActions {
		return fmt.Errorf("engine: weights at %s have %d actions, engine has %d", path, w.NumActions, l.numActions)
	}
	l.weights = w.Weights
	l.biases = w.Biases
	return nil
}

func (l *Linear) SaveSolver(path string) error {
	return writeGob(path, linearSolver{Iteration: l.iter, LearningRate: l.lr})
}

func (l *Linear) LoadSolver(path string) error {
	var s linearSolver
	if err := readGob(path, &s); err != nil {
		return err
	}
	l.iter = s.Iteration
	l.lr = s.LearningRate
	return nil
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("engine: create %s: %w", path, err)
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("engine: encode %s: %w", path, err)
	}
	return f.Close()
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("engine: open %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("engine: decode %s: %w", path, err)
	}
	return nil
}
