// Package renderer provides the two ppu.Renderer implementations this
// core ships: an ebiten-backed window for normal play and a headless,
// in-memory renderer for tests that never open a window.
// console.Bus always uses the ebiten renderer, including for the
// -nestest and -blargh runs.
package renderer

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/bdwalton/nescore/ppu"
)

const (
	screenWidth  = 256
	screenHeight = 240
)

// marginClip matches the clipping rule from the reference renderer
// this core is grounded on: background pixels are drawn edge to edge,
// but sprite layers are clipped 8px off each side and to the
// 16..(240-11) vertical band, hiding the handful of scanlines real
// TVs overscanned.
func marginClip(layer ppu.PixelLayer, x, y int) bool {
	if layer == ppu.BackgroundTile {
		return false
	}
	return x < 8 || x > screenWidth-8 || y < 16 || y > screenHeight-11
}

// EbitenRenderer composites PPU output into an ebiten.Image every
// frame and presents it through ebiten's Game.Draw cycle.
type EbitenRenderer struct {
	img         *image.RGBA
	ebitenImg   *ebiten.Image
	transparent [screenWidth * screenHeight]bool
}

// NewEbitenRenderer constructs an EbitenRenderer. Call Init before use.
func NewEbitenRenderer() *EbitenRenderer {
	return &EbitenRenderer{}
}

func (r *EbitenRenderer) Init() {
	r.img = image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight))
	r.ebitenImg = ebiten.NewImage(screenWidth, screenHeight)
}

func (r *EbitenRenderer) Cleanup() {
	if r.ebitenImg != nil {
		r.ebitenImg.Dispose()
	}
}

func (r *EbitenRenderer) Update() {
	r.ebitenImg.WritePixels(r.img.Pix)
}

func (r *EbitenRenderer) Clear(bg ppu.Color) {
	c := color.RGBA{bg.R, bg.G, bg.B, 255}
	for i := range r.transparent {
		r.transparent[i] = false
	}
	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			r.img.SetRGBA(x, y, c)
		}
	}
}

func (r *EbitenRenderer) SetPixel(layer ppu.PixelLayer, x, y int, c ppu.Color) {
	if marginClip(layer, x, y) {
		return
	}
	r.img.SetRGBA(x, y, color.RGBA{c.R, c.G, c.B, 255})
	r.transparent[y*screenWidth+x] = false
}

func (r *EbitenRenderer) SetTransparentPixel(x, y int) {
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		return
	}
	r.transparent[y*screenWidth+x] = true
}

func (r *EbitenRenderer) IsTransparentPixel(x, y int) bool {
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		return true
	}
	return r.transparent[y*screenWidth+x]
}

// Image returns the ebiten.Image the console's Draw method should
// blit to the screen.
func (r *EbitenRenderer) Image() *ebiten.Image { return r.ebitenImg }
