package env

import (
	"math/rand"
)

const (
	screenWidth  = 160
	screenHeight = 210

	paddleWidth  = 16
	paddleHeight = 3
	paddleRow    = screenHeight - 8
	paddleSpeed  = 4

	ballSize = 3

	// NTSC palette bytes used by the renderer.
	ballPixel   = 0x0e
	paddlePixel = 0x1e

	maxSteps = 1000
)

// Bounce is a minimal paddle-and-ball pixel game used to drive the agent
// without an emulator. The paddle sits near the bottom; catching the ball is
// worth +1, missing it ends the episode with -1.
type Bounce struct {
	paddleX int
	ballX   int
	ballY   int
	velX    int
	velY    int
	steps   int
	rng     *rand.Rand
}

func NewBounce(rng *rand.Rand) *Bounce {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	b := &Bounce{rng: rng}
	b.Reset()
	return b
}

func (b *Bounce) LegalActions() []Action {
	return []Action{0, 1, 2} // noop, left, right
}

func (b *Bounce) Reset() *Screen {
	b.paddleX = (screenWidth - paddleWidth) / 2
	b.ballX = b.rng.Intn(screenWidth - ballSize)
	b.ballY = 20
	b.velX = 1 + b.rng.Intn(2)
	if b.rng.Intn(2) == 0 {
		b.velX = -b.velX
	}
	b.velY = 1 + b.rng.Intn(2)
	b.steps = 0
	return b.render()
}

func (b *Bounce) Step(a Action) (*Screen, float32, bool) {
	switch a {
	case 1:
		b.paddleX -= paddleSpeed
	case 2:
		b.paddleX += paddleSpeed
	}
	if b.paddleX < 0 {
		b.paddleX = 0
	}
	if b.paddleX > screenWidth-paddleWidth {
		b.paddleX = screenWidth - paddleWidth
	}

	b.ballX += b.velX
	b.ballY += b.velY
	if b.ballX <= 0 || b.ballX >= screenWidth-ballSize {
		b.velX = -b.velX
		b.ballX += 2 * b.velX
	}
	if b.ballY <= 0 {
		b.velY = -b.velY
		b.ballY += 2 * b.velY
	}

	var reward float32
	done := false
	if b.ballY >= paddleRow-ballSize {
		if b.ballX+ballSize > b.paddleX && b.ballX < b.paddleX+paddleWidth {
			reward = 1
			b.velY = -b.velY
			b.ballY = paddleRow - ballSize - 1
		} else {
			reward = -1
			done = true
		}
	}

	b.steps++
	if b.steps >= maxSteps {
		done = true
	}
	return b.render(), reward, done
}

func (b *Bounce) render() *Screen {
	pixels := make([]uint8, screenWidth*screenHeight)
	for y := b.ballY; y < b.ballY+ballSize; y++ {
		if y < 0 || y >= screenHeight {
			continue
		}
		for x := b.ballX; x < b.ballX+ballSize; x++ {
			if x >= 0 && x < screenWidth {
				pixels[y*screenWidth+x] = ballPixel
			}
		}
	}
	for y := paddleRow; y < paddleRow+paddleHeight; y++ {
		for x := b.paddleX; x < b.paddleX+paddleWidth; x++ {
			pixels[y*screenWidth+x] = paddlePixel
		}
	}
	return &Screen{Width: screenWidth, Height: screenHeight, Pixels: pixels}
}

func MaxSteps() int {
	return maxSteps
}
