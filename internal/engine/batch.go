package engine

import (
	"recurrent-dqn/internal/frame"

	"gorgonia.org/tensor"
)

// Batch is the fixed-size staging area marshalling one training step's data
// into engine-ready tensors. One Batch is allocated per trainer and reused
// across steps; Zero must run before each reuse so that stale data never
// leaks between different-shaped batches.
//
// Tensor shapes:
//
//	Frames: minibatch x framesPerForward x 84 x 84
//	Cont:   unroll x minibatch
//	Target: unroll x minibatch x numActions
//	Filter: unroll x minibatch x numActions
//
// where framesPerForward = unroll + framesPerTimestep - 1.
type Batch struct {
	Frames *tensor.Dense
	Cont   *tensor.Dense
	Target *tensor.Dense
	Filter *tensor.Dense

	minibatch         int
	unroll            int
	framesPerTimestep int
	framesPerForward  int
	numActions        int

	frames []float32
	cont   []float32
	target []float32
	filter []float32
}

func NewBatch(minibatch, unroll, framesPerTimestep, numActions int) *Batch {
	framesPerForward := unroll + framesPerTimestep - 1
	b := &Batch{
		Frames: tensor.New(
			tensor.WithShape(minibatch, framesPerForward, frame.Size, frame.Size),
			tensor.Of(tensor.Float32)),
		Cont: tensor.New(
			tensor.WithShape(unroll, minibatch),
			tensor.Of(tensor.Float32)),
		Target: tensor.New(
			tensor.WithShape(unroll, minibatch, numActions),
			tensor.Of(tensor.Float32)),
		Filter: tensor.New(
			tensor.WithShape(unroll, minibatch, numActions),
			tensor.Of(tensor.Float32)),
		minibatch:         minibatch,
		unroll:            unroll,
		framesPerTimestep: framesPerTimestep,
		framesPerForward:  framesPerForward,
		numActions:        numActions,
	}
	b.frames = b.Frames.Data().([]float32)
	b.cont = b.Cont.Data().([]float32)
	b.target = b.Target.Data().([]float32)
	b.filter = b.Filter.Data().([]float32)
	return b
}

func (b *Batch) Minibatch() int         { return b.minibatch }
func (b *Batch) Unroll() int            { return b.unroll }
func (b *Batch) FramesPerTimestep() int { return b.framesPerTimestep }
func (b *Batch) FramesPerForward() int  { return b.framesPerForward }
func (b *Batch) NumActions() int        { return b.numActions }

// Zero clears every staging tensor.
func (b *Batch) Zero() {
	zero(b.frames)
	zero(b.cont)
	zero(b.target)
	zero(b.filter)
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

// SetFrame copies one frame into batch row n at temporal slot i.
func (b *Batch) SetFrame(n, i int, f *frame.Frame) {
	off := (n*b.framesPerForward + i) * frame.DataSize
	dst := b.frames[off : off+frame.DataSize]
	for k, v := range f {
		dst[k] = float32(v)
	}
}

// FrameAt returns the staged pixels of batch row n at temporal slot i.
func (b *Batch) FrameAt(n, i int) []float32 {
	off := (n*b.framesPerForward + i) * frame.DataSize
	return b.frames[off : off+frame.DataSize]
}

// TrainedFrameAt returns the staged pixels of the frame trained at unroll
// position u in batch row n. Slot layout: the frame of unroll position u sits
// at temporal slot u+framesPerTimestep-1, with the framesPerTimestep-1 slots
// below it holding the preceding context frames.
func (b *Batch) TrainedFrameAt(n, u int) []float32 {
	return b.FrameAt(n, u+b.framesPerTimestep-1)
}

// FillCont sets every continuation flag to v.
func (b *Batch) FillCont(v float32) {
	for i := range b.cont {
		b.cont[i] = v
	}
}

// FillContRow sets the continuation flag of every batch slot at unroll
// position u.
func (b *Batch) FillContRow(u int, v float32) {
	off := u * b.minibatch
	for n := 0; n < b.minibatch; n++ {
		b.cont[off+n] = v
	}
}

func (b *Batch) ContAt(u, n int) float32 {
	return b.cont[u*b.minibatch+n]
}

func (b *Batch) SetTarget(u, n, a int, v float32) {
	b.target[(u*b.minibatch+n)*b.numActions+a] = v
}

func (b *Batch) TargetAt(u, n, a int) float32 {
	return b.target[(u*b.minibatch+n)*b.numActions+a]
}

func (b *Batch) SetFilter(u, n, a int, v float32) {
	b.filter[(u*b.minibatch+n)*b.numActions+a] = v
}

func (b *Batch) FilterAt(u, n, a int) float32 {
	return b.filter[(u*b.minibatch+n)*b.numActions+a]
}
