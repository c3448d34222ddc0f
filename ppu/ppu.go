// Package ppu implements the NES picture processing unit: background
// and sprite scanline rendering, the loopy v/t/x/w scroll registers,
// OAM, and the memory-mapped register protocol the CPU bus exposes at
// 0x2000-0x2007 and 0x4014.
package ppu

import (
	"time"
)

// Register offsets within the 8-byte mirrored register window.
const (
	PPUCTRL   = 0x2000
	PPUMASK   = 0x2001
	PPUSTATUS = 0x2002
	OAMADDR   = 0x2003
	OAMDATA   = 0x2004
	PPUSCROLL = 0x2005
	PPUADDR   = 0x2006
	PPUDATA   = 0x2007
	OAMDMA    = 0x4014
)

// PPUCTRL bits.
const (
	CtrlNametableLo   uint8 = 1 << 0
	CtrlNametableHi   uint8 = 1 << 1
	CtrlVRAMIncrement uint8 = 1 << 2
	CtrlSpritePattern uint8 = 1 << 3
	CtrlBGPattern     uint8 = 1 << 4
	CtrlSpriteSize    uint8 = 1 << 5
	CtrlMasterSlave   uint8 = 1 << 6
	CtrlNMIEnable     uint8 = 1 << 7
)

// PPUSTATUS bits.
const (
	StatusSpriteOverflow uint8 = 1 << 5
	StatusSprite0Hit     uint8 = 1 << 6
	StatusVBlank         uint8 = 1 << 7
)

// PPUMASK bits.
const (
	MaskGrayscale     uint8 = 1 << 0
	MaskShowBGLeft    uint8 = 1 << 1
	MaskShowSpriteLeft uint8 = 1 << 2
	MaskShowBG        uint8 = 1 << 3
	MaskShowSprites   uint8 = 1 << 4
)

const (
	screenWidth  = 256
	screenHeight = 240
	cyclesPerScanline = 341
	visibleScanlines  = 240
	vblankStart       = 240
	vblankEnd         = 260
	frameEndScanline  = 261
	initialScanline   = 241
	oamSize           = 256
)

// Color is one system-palette entry, shared with the renderer layer.
type Color struct {
	R, G, B uint8
}

// Bus is the cartridge-facing side of the PPU: CHR reads/writes and
// nametable mirroring come from the loaded cartridge, and TriggerNMI
// latches an interrupt on the CPU.
type Bus interface {
	ReadCHR(addr uint16) uint8
	WriteCHR(addr uint16, val uint8)
	Mirroring() uint8
	IRQTick()
	TriggerNMI()
}

// Mirroring modes, mirrored here so ppu doesn't import the cartridge
// package just to read one byte's meaning.
const (
	MirrorHorizontal uint8 = iota
	MirrorVertical
	MirrorSingleLower
	MirrorSingleUpper
	MirrorFourScreen
)

// Renderer is the presentation sink: it stores the pixels the PPU
// emits and presents finished frames, leaving the PPU free of any
// windowing dependency. EbitenRenderer and HeadlessRenderer (package renderer)
// both implement it.
type Renderer interface {
	Init()
	Cleanup()
	Update()
	Clear(bg Color)
	SetPixel(layer PixelLayer, x, y int, c Color)
	SetTransparentPixel(x, y int)
	IsTransparentPixel(x, y int) bool
}

// PixelLayer identifies which of the three compositing layers a pixel
// belongs to.
type PixelLayer uint8

const (
	BackgroundTile PixelLayer = iota
	ForegroundSprite
	BackgroundSprite
)

// PPU is the NES picture processing unit.
type PPU struct {
	bus      Bus
	renderer Renderer

	vram         [2048]uint8 // two physical nametables; mirroring folds onto these
	paletteTable [32]uint8
	oamData      [oamSize]uint8

	ctrl, mask, status uint8
	oamAddr            uint8

	v, t loopy
	x     uint8 // fine X scroll
	w     bool  // write-toggle latch

	readBuffer uint8

	scanline int
	scandot  int

	nmiFiredThisFrame bool

	spritesOnLine    int
	spriteOverflow   bool

	lastFrameTime time.Time
}

// New constructs a PPU wired to bus and renderer. The scanline counter
// starts at 241, matching the point in the frame the real hardware's
// power-on sequence lands on.
func New(bus Bus, renderer Renderer) *PPU {
	p := &PPU{bus: bus, renderer: renderer, scanline: initialScanline}
	renderer.Init()
	return p
}

// Reset returns register state to its power-on values without
// re-initializing the renderer.
func (p *PPU) Reset() {
	p.ctrl, p.mask, p.status = 0, 0, 0
	p.oamAddr = 0
	p.v, p.t = loopy{}, loopy{}
	p.x = 0
	p.w = false
	p.scanline = initialScanline
	p.scandot = 0
}

// --- register protocol (0x2000-0x2007, 0x4014) ---

// ReadRegister handles a CPU read from the mirrored 0x2000-0x2007
// window (addr must already be folded to 0x2000-0x2007 by the caller).
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case PPUSTATUS:
		v := p.status
		p.status &^= StatusVBlank
		p.w = false
		return v
	case OAMDATA:
		return p.oamData[p.oamAddr]
	case PPUDATA:
		return p.readData()
	default:
		return 0
	}
}

// WriteRegister handles a CPU write to the mirrored 0x2000-0x2007
// window (addr must already be folded to 0x2000-0x2007 by the caller).
// OAM DMA (0x4014) is not handled here: the console bus gathers the
// 256-byte page from CPU memory and passes it to WriteOAMDMA.
func (p *PPU) WriteRegister(addr uint16, val uint8) {
	switch addr {
	case PPUCTRL:
		p.ctrl = val
		p.t.data = (p.t.data &^ 0x0C00) | uint16(val&0x03)<<10
	case PPUMASK:
		p.mask = val
	case OAMADDR:
		p.oamAddr = val
	case OAMDATA:
		p.oamData[p.oamAddr] = val
		p.oamAddr++
	case PPUSCROLL:
		if !p.w {
			p.x = val & 0x07
			p.t.setCoarseX(uint16(val >> 3))
		} else {
			p.t.setFineY(uint16(val & 0x07))
			p.t.setCoarseY(uint16(val >> 3))
		}
		p.w = !p.w
	case PPUADDR:
		if !p.w {
			p.t.data = (p.t.data & 0x00FF) | (uint16(val&0x3F) << 8)
		} else {
			p.t.data = (p.t.data & 0xFF00) | uint16(val)
			p.v = p.t
		}
		p.w = !p.w
	case PPUDATA:
		p.writeData(val)
	}
}

// WriteOAMDMA copies 256 bytes into OAM starting at the current OAM
// address, wrapping, as if the CPU had written OAMDATA 256 times.
func (p *PPU) WriteOAMDMA(page [256]uint8) {
	for _, b := range page {
		p.oamData[p.oamAddr] = b
		p.oamAddr++
	}
}

func (p *PPU) vramIncrement() uint16 {
	if p.ctrl&CtrlVRAMIncrement != 0 {
		return 32
	}
	return 1
}

func (p *PPU) readData() uint8 {
	addr := p.v.data & 0x3FFF
	var result uint8

	if addr <= 0x3EFF {
		result = p.readBuffer
		p.readBuffer = p.read(addr)
	} else {
		result = p.read(addr)
		p.readBuffer = p.read(addr &^ 0x1000)
	}

	p.v.data = (p.v.data + p.vramIncrement()) & 0x7FFF
	return result
}

func (p *PPU) writeData(val uint8) {
	p.write(p.v.data&0x3FFF, val)
	p.v.data = (p.v.data + p.vramIncrement()) & 0x7FFF
}

// --- raw address-space read/write, with mirroring folds ---

func (p *PPU) normalizeAddress(addr uint16) uint16 {
	addr &= 0x3FFF
	if addr >= 0x3000 && addr <= 0x3EFF {
		addr -= 0x1000
	}
	return addr
}

func (p *PPU) mirrorNametable(addr uint16) uint16 {
	rel := addr - 0x2000
	table := rel / 0x400
	offset := rel % 0x400

	var physical uint16
	switch p.bus.Mirroring() {
	case MirrorHorizontal:
		physical = (table / 2) % 2
	case MirrorVertical:
		physical = table % 2
	case MirrorSingleLower:
		physical = 0
	case MirrorSingleUpper:
		physical = 1
	case MirrorFourScreen:
		return rel % 2048 // approximated: no extra CHR-RAM bank modeled
	}

	return physical*0x400 + offset
}

func (p *PPU) paletteIndex(addr uint16) uint16 {
	idx := addr & 0x1F
	if idx >= 0x10 && idx%4 == 0 {
		idx -= 0x10
	}
	return idx
}

func (p *PPU) read(addr uint16) uint8 {
	addr = p.normalizeAddress(addr)
	switch {
	case addr < 0x2000:
		return p.bus.ReadCHR(addr)
	case addr < 0x3F00:
		return p.vram[p.mirrorNametable(addr)]
	default:
		return p.paletteTable[p.paletteIndex(addr)]
	}
}

func (p *PPU) write(addr uint16, val uint8) {
	addr = p.normalizeAddress(addr)
	switch {
	case addr < 0x2000:
		p.bus.WriteCHR(addr, val)
	case addr < 0x3F00:
		p.vram[p.mirrorNametable(addr)] = val
	default:
		p.paletteTable[p.paletteIndex(addr)] = val
	}
}

// Status reports the raw PPUSTATUS byte, for debug tooling.
func (p *PPU) Status() uint8 { return p.status }

// Tick advances the PPU by n master PPU cycles (3 per CPU cycle),
// driving the scanline state machine that produces one frame every
// 262 scanlines of 341 dots.
func (p *PPU) Tick(n int) {
	for i := 0; i < n; i++ {
		p.tick()
	}
}

func (p *PPU) tick() {
	if p.scanline <= visibleScanlines-1 && p.scandot == 0 {
		p.onScanlineStart()
	}

	if p.scanline <= visibleScanlines-1 && p.scandot == 1 {
		p.renderScanline(p.scanline)
	}

	if p.scanline == vblankStart && p.scandot == 1 {
		p.status |= StatusVBlank
		p.maybeFireNMI()
	}

	p.scandot++
	if p.scandot >= cyclesPerScanline {
		p.scandot = 0
		p.scanline++

		if p.scanline > frameEndScanline {
			p.endFrame()
		}
	}
}

func (p *PPU) onScanlineStart() {
	if p.renderingEnabled() {
		if p.scanline == 0 {
			p.v = p.t
		}
		// copy horizontal bits of t into v
		p.v.data = (p.v.data &^ 0x041F) | (p.t.data & 0x041F)
	}
	p.bus.IRQTick()
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(MaskShowBG|MaskShowSprites) != 0
}

func (p *PPU) maybeFireNMI() {
	if p.ctrl&CtrlNMIEnable != 0 && p.status&StatusVBlank != 0 && !p.nmiFiredThisFrame {
		p.nmiFiredThisFrame = true
		p.bus.TriggerNMI()
	}
}

func (p *PPU) endFrame() {
	p.status &^= StatusSprite0Hit | StatusSpriteOverflow
	p.renderer.Update()
	p.renderer.Clear(p.backdropColor())
	p.nmiFiredThisFrame = false
	p.scanline = 0

	p.paceFrame()
}

func (p *PPU) backdropColor() Color {
	return SystemPalette[p.paletteTable[0]&0x3F]
}

func (p *PPU) paceFrame() {
	const target = time.Second / 60
	if p.lastFrameTime.IsZero() {
		p.lastFrameTime = time.Now()
		return
	}
	elapsed := time.Since(p.lastFrameTime)
	if elapsed < target {
		time.Sleep(target - elapsed)
	}
	p.lastFrameTime = time.Now()
}

func incCoarseX(l *loopy) {
	if l.coarseX() == 31 {
		l.setCoarseX(0)
		l.toggleNametableX()
	} else {
		l.incrementCoarseX()
	}
}

func incFineYWrap(l *loopy) {
	if l.fineY() < 7 {
		l.incrementFineY()
		return
	}
	l.setFineY(0)
	switch l.coarseY() {
	case 29:
		l.setCoarseY(0)
		l.toggleNametableY()
	case 31:
		l.setCoarseY(0)
	default:
		l.incrementCoarseY()
	}
}

// renderScanline draws one visible scanline into the renderer: the
// background pass, then the two sprite passes (bg-priority sprites,
// then fg-priority), composited sprite-bg -> background -> sprite-fg.
func (p *PPU) renderScanline(line int) {
	if !p.renderingEnabled() {
		return
	}

	bgOpaque := p.renderBackgroundLine(line)
	p.renderSpritesLine(line, bgOpaque)

	incFineYWrap(&p.v)
}

// renderBackgroundLine draws the 32-tile-wide background row and
// returns, per screen column, whether the drawn pixel was opaque (for
// sprite-0-hit testing).
func (p *PPU) renderBackgroundLine(line int) [screenWidth]bool {
	var opaque [screenWidth]bool
	if p.mask&MaskShowBG == 0 {
		return opaque
	}

	fineY := p.v.fineY()

	for col := 0; col < 32; col++ {
		nametableBase := uint16(0x2000) + (p.v.data&0x0C00)

		tileAddr := nametableBase | (p.v.data & 0x03FF)
		tileIdx := p.read(tileAddr)

		patternBase := uint16(0)
		if p.ctrl&CtrlBGPattern != 0 {
			patternBase = 0x1000
		}

		plane0 := p.read(patternBase + uint16(tileIdx)<<4 + fineY)
		plane1 := p.read(patternBase + uint16(tileIdx)<<4 + fineY + 8)

		attrAddr := nametableBase | 0x03C0 | ((p.v.data >> 4) & 0x38) | ((p.v.data >> 2) & 0x07)
		attr := p.read(attrAddr)
		quadShift := ((p.v.coarseY() & 0x02) << 1) | (p.v.coarseX() & 0x02)
		paletteBase := (attr >> quadShift) & 0x03

		for px := 0; px < 8; px++ {
			bit := 7 - px
			lo := (plane0 >> bit) & 1
			hi := (plane1 >> bit) & 1
			palIdx := lo | hi<<1

			screenX := col*8 + px - int(p.x)
			if screenX < 0 || screenX >= screenWidth {
				continue
			}

			if palIdx == 0 {
				p.renderer.SetTransparentPixel(screenX, line)
				continue
			}

			opaque[screenX] = true
			c := SystemPalette[p.paletteTable[uint16(paletteBase)<<2|uint16(palIdx)]&0x3F]
			p.renderer.SetPixel(BackgroundTile, screenX, line, c)
		}

		incCoarseX(&p.v)
	}

	return opaque
}

func (p *PPU) spriteHeight() int {
	if p.ctrl&CtrlSpriteSize != 0 {
		return 16
	}
	return 8
}

// renderSpritesLine evaluates OAM entries 63..0 for the given scanline
// twice: once for background-priority sprites, once for
// foreground-priority, so entry 0 always composites last within its
// priority and sprite-0-hit can be detected against the background.
func (p *PPU) renderSpritesLine(line int, bgOpaque [screenWidth]bool) {
	if p.mask&MaskShowSprites == 0 {
		return
	}

	height := p.spriteHeight()
	count := 0

	for pass := 0; pass < 2; pass++ {
		wantBack := pass == 0

		for i := 63; i >= 0; i-- {
			base := i * 4
			o := OAMFromBytes(p.oamData[base : base+4])
			spriteTop := int(o.y) + 1
			row := line - spriteTop
			if row < 0 || row >= height {
				continue
			}

			if pass == 0 {
				count++
			}

			if (o.renderP == BACK) != wantBack {
				continue
			}

			if o.flipV {
				row = height - 1 - row
			}

			tileIdx := uint16(o.tileId)
			patternBase := uint16(0)
			rowInTile := uint16(row)
			if height == 16 {
				patternBase = uint16(tileIdx&1) << 12
				tileIdx &^= 1
				if row >= 8 {
					tileIdx++
					rowInTile = uint16(row) - 8
				}
			} else if p.ctrl&CtrlSpritePattern != 0 {
				patternBase = 0x1000
			}

			plane0 := p.read(patternBase + tileIdx<<4 + rowInTile)
			plane1 := p.read(patternBase + tileIdx<<4 + rowInTile + 8)

			layer := ForegroundSprite
			if o.renderP == BACK {
				layer = BackgroundSprite
			}

			for px := 0; px < 8; px++ {
				bit := px
				if !o.flipH {
					bit = 7 - px
				}
				lo := (plane0 >> uint(bit)) & 1
				hi := (plane1 >> uint(bit)) & 1
				palIdx := lo | hi<<1
				if palIdx == 0 {
					continue
				}

				screenX := int(o.x) + px
				if screenX < 0 || screenX >= screenWidth {
					continue
				}

				if i == 0 && bgOpaque[screenX] && p.mask&(MaskShowBG|MaskShowSprites) == (MaskShowBG|MaskShowSprites) {
					p.status |= StatusSprite0Hit
				}

				// Background-priority sprites stay behind opaque
				// background pixels.
				if o.renderP == BACK && bgOpaque[screenX] {
					continue
				}

				c := SystemPalette[p.paletteTable[0x10+uint16(o.palette)<<2|uint16(palIdx)]&0x3F]
				p.renderer.SetPixel(layer, screenX, line, c)
			}
		}
	}

	if count > 8 {
		p.status |= StatusSpriteOverflow
	}
}
