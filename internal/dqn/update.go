package dqn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
	"recurrent-dqn/internal/replay"
)

// ErrNoEligibleEpisode is returned by UpdateRandom when no stored episode is
// long enough to hold a full history window plus a full unroll window.
var ErrNoEligibleEpisode = errors.New("dqn: no episode long enough for a full history and unroll window")

// TrainerConfig holds the learning hyperparameters consumed by the update
// algorithms.
type TrainerConfig struct {
	// Gamma is the discount factor applied to bootstrapped targets.
	Gamma float32
	// CloneEvery is the number of training iterations between refreshes
	// of the target clone.
	CloneEvery int
	// Unroll is the number of consecutive timesteps trained together
	// through recurrent state in one step.
	Unroll int
	// MinibatchSize is the number of episodes replayed per step.
	MinibatchSize int
	// FramesPerTimestep is the number of recent frames forming the
	// temporal context of one decision point.
	FramesPerTimestep int
}

func (c TrainerConfig) validate() error {
	if c.Gamma <= 0 || c.Gamma > 1 {
		return errors.New("gamma must be in (0,1]")
	}
	if c.CloneEvery <= 0 {
		return errors.New("clone interval must be greater than zero")
	}
	if c.Unroll <= 0 {
		return errors.New("unroll length must be greater than zero")
	}
	if c.MinibatchSize <= 0 {
		return errors.New("minibatch size must be greater than zero")
	}
	if c.FramesPerTimestep <= 0 {
		return errors.New("frames per timestep must be greater than zero")
	}
	return nil
}

// Trainer improves the live engine from replayed experience. Targets are
// computed against a periodically refreshed frozen clone so that the values
// being regressed toward do not move with every step.
type Trainer struct {
	cfg   TrainerConfig
	eng   engine.Engine
	clone engine.Engine
	mem   *replay.Memory
	legal []env.Action
	batch *engine.Batch
	rng   *rand.Rand
	log   zerolog.Logger

	lastCloneIter int
}

func NewTrainer(eng engine.Engine, mem *replay.Memory, legal []env.Action, cfg TrainerConfig, rng *rand.Rand, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(legal) == 0 {
		return nil, errors.New("legal action set must not be empty")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Trainer{
		cfg:   cfg,
		eng:   eng,
		mem:   mem,
		legal: legal,
		batch: engine.NewBatch(cfg.MinibatchSize, cfg.Unroll, cfg.FramesPerTimestep, len(legal)),
		rng:   rng,
		log:   logger.With().Str("component", "trainer").Logger(),
	}, nil
}

// maybeRefreshClone replaces the target clone when it is absent or stale.
func (t *Trainer) maybeRefreshClone() error {
	if t.clone != nil && t.eng.Iteration() < t.lastCloneIter+t.cfg.CloneEvery {
		return nil
	}
	t.log.Info().Int("iteration", t.eng.Iteration()).Msg("refreshing target clone")
	clone, err := t.eng.Clone()
	if err != nil {
		return fmt.Errorf("dqn: refresh target clone: %w", err)
	}
	t.clone = clone
	t.lastCloneIter = t.eng.Iteration()
	return nil
}

// target applies the shared bootstrap rule: a terminal transition's target is
// its reward, a non-terminal one adds the discounted next-state maximum.
func (t *Trainer) target(tr replay.Transition, nextMax float32) float32 {
	if tr.Reward < -1 || tr.Reward > 1 {
		panic(fmt.Sprintf("dqn: reward %v outside [-1,1]", tr.Reward))
	}
	tgt := tr.Reward
	if !tr.Terminal() {
		tgt += t.cfg.Gamma * nextMax
	}
	if f := float64(tgt); math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Sprintf("dqn: non-finite target %v", tgt))
	}
	return tgt
}

func (t *Trainer) actionIndex(a env.Action) int {
	idx := int(a)
	if idx < 0 || idx >= len(t.legal) {
		panic(fmt.Sprintf("dqn: action index %d outside legal set of %d", idx, len(t.legal)))
	}
	return idx
}

// UpdateSequential replays up to MinibatchSize random episodes from their
// first step to their last, in lock-step, issuing one training step per
// unroll window. Recurrent state carries across steps within the replay of an
// episode set and is reset only at global timestep zero. Returns the number
// of training steps performed.
func (t *Trainer) UpdateSequential() (int, error) {
	if err := t.maybeRefreshClone(); err != nil {
		return 0, err
	}
	epInds := t.mem.SampleEpisodeIndices(t.cfg.MinibatchSize)
	if len(epInds) == 0 {
		return 0, nil
	}

	// Sliding history of the most recent next-state frames per batch slot.
	histories := make([]*deque.Deque[*frame.Frame], len(epInds))
	for n := range histories {
		histories[n] = deque.New[*frame.Frame]()
	}

	active := len(epInds)
	steps := 0
	tstep := 0
	for active > 0 {
		t.batch.Zero()
		flushStart := tstep
		for i := 0; i < t.cfg.Unroll; i, tstep = i+1, tstep+1 {
			if tstep == 0 {
				t.batch.FillContRow(i, 0)
			} else {
				t.batch.FillContRow(i, 1)
			}
			active = 0
			for n, epIdx := range epInds {
				ep := t.mem.Episode(epIdx)
				hist := histories[n]
				if tstep < len(ep) && !ep[tstep].Terminal() {
					active++
					hist.PushBack(ep[tstep].Next)
					for hist.Len() > t.cfg.FramesPerTimestep {
						hist.PopFront()
					}
				} else {
					hist.Clear()
				}
			}
			if tstep < t.cfg.FramesPerTimestep {
				// Histories are still warming up.
				continue
			}

			windows := make([]engine.Window, 0, len(epInds))
			for _, hist := range histories {
				if hist.Len() == 0 {
					continue
				}
				if hist.Len() != t.cfg.FramesPerTimestep {
					panic(fmt.Sprintf("dqn: history window has %d frames, want %d", hist.Len(), t.cfg.FramesPerTimestep))
				}
				w := make(engine.Window, hist.Len())
				for k := range w {
					w[k] = hist.At(k)
				}
				windows = append(windows, w)
			}
			nextValues, err := greedyActions(t.clone, t.legal, windows, tstep > 0)
			if err != nil {
				return steps, err
			}

			vi := 0
			for n, epIdx := range epInds {
				ep := t.mem.Episode(epIdx)
				if tstep >= len(ep) {
					continue
				}
				tr := ep[tstep]
				a := t.actionIndex(tr.Action)
				var nextMax float32
				if !tr.Terminal() {
					nextMax = nextValues[vi].Value
					vi++
				}
				t.batch.SetFilter(i, n, a, 1)
				t.batch.SetTarget(i, n, a, t.target(tr, nextMax))
				t.batch.SetFrame(n, i+t.cfg.FramesPerTimestep-1, tr.Frame)
			}
			if vi != len(nextValues) {
				panic(fmt.Sprintf("dqn: consumed %d of %d next-state values", vi, len(nextValues)))
			}
		}
		// History frames preceding the flush's first unroll position. Slots
		// before an episode's start stay zero, matching the warm-up skip.
		for n, epIdx := range epInds {
			ep := t.mem.Episode(epIdx)
			for k := 0; k < t.cfg.FramesPerTimestep-1; k++ {
				ts := flushStart - t.cfg.FramesPerTimestep + 1 + k
				if ts >= 0 && ts < len(ep) {
					t.batch.SetFrame(n, k, ep[ts].Frame)
				}
			}
		}
		if err := t.eng.TrainStep(t.batch); err != nil {
			return steps, fmt.Errorf("dqn: train step: %w", err)
		}
		steps++
	}
	return steps, nil
}

// UpdateRandom trains on one randomly positioned window per selected episode:
// each episode contributes a start offset leaving room for a full frame
// history plus a full unroll, and a single training step covers the whole
// window. Returns 1 on success.
func (t *Trainer) UpdateRandom() (int, error) {
	if err := t.maybeRefreshClone(); err != nil {
		return 0, err
	}
	// A window spans framesPerTimestep history positions and unroll
	// training positions, overlapping by one.
	minLen := t.cfg.FramesPerTimestep + t.cfg.Unroll - 1
	var epInds []int
	for _, idx := range t.mem.SampleEpisodeIndices(t.cfg.MinibatchSize) {
		if len(t.mem.Episode(idx)) >= minLen {
			epInds = append(epInds, idx)
		}
	}
	if len(epInds) == 0 {
		return 0, ErrNoEligibleEpisode
	}

	t.batch.Zero()
	t.batch.FillCont(1)
	t.batch.FillContRow(0, 0)

	starts := make([]int, len(epInds))
	for n, epIdx := range epInds {
		lastValid := len(t.mem.Episode(epIdx)) - minLen
		starts[n] = t.rng.Intn(lastValid + 1)
	}

	for u := 0; u < t.cfg.Unroll; u++ {
		windows := make([]engine.Window, 0, len(epInds))
		for n, epIdx := range epInds {
			ep := t.mem.Episode(epIdx)
			last := starts[n] + u + t.cfg.FramesPerTimestep - 1
			if ep[last].Terminal() {
				continue
			}
			w := make(engine.Window, t.cfg.FramesPerTimestep)
			for k := range w {
				w[k] = ep[starts[n]+u+k].Next
			}
			windows = append(windows, w)
		}
		nextValues, err := greedyActions(t.clone, t.legal, windows, u > 0)
		if err != nil {
			return 0, err
		}

		vi := 0
		for n, epIdx := range epInds {
			ep := t.mem.Episode(epIdx)
			ts := starts[n] + u + t.cfg.FramesPerTimestep - 1
			tr := ep[ts]
			a := t.actionIndex(tr.Action)
			var nextMax float32
			if !tr.Terminal() {
				nextMax = nextValues[vi].Value
				vi++
			}
			t.batch.SetFilter(u, n, a, 1)
			t.batch.SetTarget(u, n, a, t.target(tr, nextMax))
			t.batch.SetFrame(n, u+t.cfg.FramesPerTimestep-1, tr.Frame)
		}
		if vi != len(nextValues) {
			panic(fmt.Sprintf("dqn: consumed %d of %d next-state values", vi, len(nextValues)))
		}
	}

	// History frames preceding the first unroll position.
	for n, epIdx := range epInds {
		ep := t.mem.Episode(epIdx)
		for i := 0; i < t.cfg.FramesPerTimestep-1; i++ {
			t.batch.SetFrame(n, i, ep[starts[n]+i].Frame)
		}
	}

	if err := t.eng.TrainStep(t.batch); err != nil {
		return 0, fmt.Errorf("dqn: train step: %w", err)
	}
	return 1, nil
}
