// Package frame converts raw NTSC emulator screens into the fixed 84x84
// grayscale frames consumed by the value network.
package frame

const (
	// Size is the side length of a preprocessed frame.
	Size = 84
	// DataSize is the number of bytes in a preprocessed frame.
	DataSize = Size * Size
)

// Frame is one downsampled grayscale image. Frames are immutable once
// produced; transitions and episodes share them by pointer, since a frame is
// the next state of one transition and the current state of the following one.
type Frame [DataSize]uint8
