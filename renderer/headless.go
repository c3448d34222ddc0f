package renderer

import "github.com/bdwalton/nescore/ppu"

// HeadlessRenderer keeps a plain RGB buffer in memory with no window
// or GPU dependency, for tests that only need to inspect pixels.
// console.Bus does not use it.
type HeadlessRenderer struct {
	pixels      [screenWidth * screenHeight]ppu.Color
	transparent [screenWidth * screenHeight]bool
	frames      int
}

func NewHeadlessRenderer() *HeadlessRenderer { return &HeadlessRenderer{} }

func (r *HeadlessRenderer) Init()    {}
func (r *HeadlessRenderer) Cleanup() {}
func (r *HeadlessRenderer) Update()  { r.frames++ }

func (r *HeadlessRenderer) Clear(bg ppu.Color) {
	for i := range r.pixels {
		r.pixels[i] = bg
		r.transparent[i] = false
	}
}

func (r *HeadlessRenderer) SetPixel(layer ppu.PixelLayer, x, y int, c ppu.Color) {
	if marginClip(layer, x, y) {
		return
	}
	r.pixels[y*screenWidth+x] = c
	r.transparent[y*screenWidth+x] = false
}

func (r *HeadlessRenderer) SetTransparentPixel(x, y int) {
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		return
	}
	r.transparent[y*screenWidth+x] = true
}

func (r *HeadlessRenderer) IsTransparentPixel(x, y int) bool {
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		return true
	}
	return r.transparent[y*screenWidth+x]
}

// Pixel returns the composited color at (x, y), for tests that assert
// on rendered frame content.
func (r *HeadlessRenderer) Pixel(x, y int) ppu.Color { return r.pixels[y*screenWidth+x] }

// Frames reports how many times Update has been called.
func (r *HeadlessRenderer) Frames() int { return r.frames }
