package frame

import (
	"fmt"
	"math"

	"recurrent-dqn/internal/env"
)

// Preprocess converts a raw screen to an 84x84 grayscale frame. The top of the
// screen is cropped so that 85% of the raw height remains, the leftmost 8
// pixel columns are dropped, and the rest is area-resampled: every destination
// pixel is the coverage-weighted average of all source pixels overlapping it.
// The result is deterministic for a given input.
//
// A screen that is not taller than it is wide, or whose pixel buffer does not
// match its declared shape, is a contract violation and panics.
func Preprocess(s *env.Screen) *Frame {
	if s.Height <= s.Width {
		panic(fmt.Sprintf("frame: screen must be taller than wide, got %dx%d", s.Width, s.Height))
	}
	if len(s.Pixels) != s.Width*s.Height {
		panic(fmt.Sprintf("frame: pixel buffer has %d bytes, want %d", len(s.Pixels), s.Width*s.Height))
	}

	croppedHeight := int(0.85 * float64(s.Height))
	startY := s.Height - croppedHeight
	const startX = 8
	croppedWidth := s.Width - startX
	xRatio := float64(croppedWidth) / float64(Size)
	yRatio := float64(croppedHeight) / float64(Size)

	out := new(Frame)
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			firstX := startX + int(math.Floor(float64(j)*xRatio))
			lastX := startX + int(math.Floor(float64(j+1)*xRatio))
			firstY := startY + int(math.Floor(float64(i)*yRatio))
			lastY := startY + int(math.Floor(float64(i+1)*yRatio))
			var sum float64
			for x := firstX; x <= lastX && x < s.Width; x++ {
				// Fractional coverage of this source column by
				// destination column j. Interior columns are fully
				// covered; the source columns at either edge of the
				// window contribute their overlap only.
				xCover := 1.0
				if x == firstX {
					xCover = float64(x+1) - float64(j)*xRatio - startX
				} else if x == lastX {
					xCover = xRatio*float64(j+1) - float64(x) + startX
				}
				for y := firstY; y <= lastY && y < s.Height; y++ {
					yCover := 1.0
					if y == firstY {
						yCover = float64(y+1) - float64(i)*yRatio - float64(startY)
					} else if y == lastY {
						yCover = yRatio*float64(i+1) - float64(y) + float64(startY)
					}
					gray := float64(grayscale[s.Pixels[y*s.Width+x]])
					sum += (xCover / xRatio) * (yCover / yRatio) * gray
				}
			}
			v := math.Round(sum)
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out[i*Size+j] = uint8(v)
		}
	}
	return out
}
