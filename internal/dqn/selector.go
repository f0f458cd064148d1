// Package dqn implements the decision and learning side of the agent:
// epsilon-greedy action selection and the two replay-based update algorithms.
package dqn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/env"
)

// ActionValue pairs an action with its estimated Q-value.
type ActionValue struct {
	Action env.Action
	Value  float32
}

// Selector chooses actions epsilon-greedily through the evaluation engine.
// It has no side effects beyond RNG consumption.
type Selector struct {
	eng       engine.Engine
	legal     []env.Action
	minibatch int
	rng       *rand.Rand
}

func NewSelector(eng engine.Engine, legal []env.Action, minibatch int, rng *rand.Rand) (*Selector, error) {
	if len(legal) == 0 {
		return nil, errors.New("legal action set must not be empty")
	}
	if minibatch <= 0 {
		return nil, errors.New("minibatch size must be greater than zero")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Selector{eng: eng, legal: legal, minibatch: minibatch, rng: rng}, nil
}

// SelectActions returns one action per input window. A single coin flip
// decides for the whole batch: with probability epsilon every action is
// uniform random and the engine is never consulted, otherwise every action is
// the greedy argmax of the evaluated Q-values. cont is false at the start of
// an episode to reset recurrent state.
func (s *Selector) SelectActions(windows []engine.Window, epsilon float64, cont bool) ([]env.Action, error) {
	if epsilon < 0 || epsilon > 1 {
		panic(fmt.Sprintf("dqn: epsilon %v outside [0,1]", epsilon))
	}
	if len(windows) > s.minibatch {
		panic(fmt.Sprintf("dqn: batch of %d windows exceeds minibatch size %d", len(windows), s.minibatch))
	}
	actions := make([]env.Action, len(windows))
	if s.rng.Float64() < epsilon {
		for i := range actions {
			actions[i] = s.legal[s.rng.Intn(len(s.legal))]
		}
		return actions, nil
	}
	values, err := greedyActions(s.eng, s.legal, windows, cont)
	if err != nil {
		return nil, err
	}
	for i, av := range values {
		actions[i] = av.Action
	}
	return actions, nil
}

// SelectAction is the single-input form of SelectActions.
func (s *Selector) SelectAction(w engine.Window, epsilon float64, cont bool) (env.Action, error) {
	actions, err := s.SelectActions([]engine.Window{w}, epsilon, cont)
	if err != nil {
		return 0, err
	}
	return actions[0], nil
}

// greedyActions evaluates the windows on eng and picks, per input, the legal
// action with the maximum Q-value. Ties break toward the first occurrence in
// the legal-action list. The same cont flag is broadcast to every batch slot.
func greedyActions(eng engine.Engine, legal []env.Action, windows []engine.Window, cont bool) ([]ActionValue, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	contFlags := make([]bool, len(windows))
	for i := range contFlags {
		contFlags[i] = cont
	}
	qs, err := eng.EvaluateBatch(windows, contFlags)
	if err != nil {
		return nil, fmt.Errorf("dqn: evaluate batch: %w", err)
	}
	if len(qs) != len(windows) {
		panic(fmt.Sprintf("dqn: engine returned %d outputs for %d windows", len(qs), len(windows)))
	}
	out := make([]ActionValue, len(windows))
	for i, q := range qs {
		if len(q) != len(legal) {
			panic(fmt.Sprintf("dqn: engine returned %d values for %d legal actions", len(q), len(legal)))
		}
		best := 0
		for a := 0; a < len(q); a++ {
			if math.IsNaN(float64(q[a])) {
				panic("dqn: NaN Q-value from engine")
			}
			if q[a] > q[best] {
				best = a
			}
		}
		out[i] = ActionValue{Action: legal[best], Value: q[best]}
	}
	return out, nil
}
