package console

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Button bit order within a standard NES controller's first 8
// serialized bits.
var keys = []ebiten.Key{
	ebiten.KeyA,     // A
	ebiten.KeyB,     // B
	ebiten.KeySpace, // Select
	ebiten.KeyEnter, // Start
	ebiten.KeyUp,    // Up
	ebiten.KeyDown,  // Down
	ebiten.KeyLeft,  // Left
	ebiten.KeyRight, // Right
}

// controller models one NES controller port as a 24-bit serial shift
// register: 8 button bits, 8 bits of player-3/4 signature (always
// zero - this core has no four-score adapter), then 7 ignored bits
// and a trailing signature bit identifying the port as a standard
// controller.
type controller struct {
	buttons [8]bool
	idx     uint8
}

// latch resets the read index to 0 and, for the primary port, samples
// the current physical key state. It's called on every strobe
// high-to-low transition, mirroring how the real shift register
// captures button state.
func (c *controller) latch(poll bool) {
	c.idx = 0
	if poll {
		c.pollKeys()
	}
}

func (c *controller) pollKeys() {
	for i, key := range keys {
		c.buttons[i] = ebiten.IsKeyPressed(key)
	}
}

// read returns the next serialized bit, OR'd with 0x40 as the open
// CPU data bus lines float high on an NES.
func (c *controller) read() uint8 {
	var bit uint8
	switch {
	case c.idx < 8:
		if c.buttons[c.idx] {
			bit = 1
		}
	case c.idx == 23:
		bit = 1 // no four-player adapter signature
	}

	if c.idx < 24 {
		c.idx++
	}

	return bit | 0x40
}
