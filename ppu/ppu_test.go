package ppu

import "testing"

type fakeBus struct {
	chr       [0x2000]uint8
	mirroring uint8
	nmiCount  int
	irqTicks  int
}

func (b *fakeBus) ReadCHR(addr uint16) uint8     { return b.chr[addr] }
func (b *fakeBus) WriteCHR(addr uint16, v uint8) { b.chr[addr] = v }
func (b *fakeBus) Mirroring() uint8              { return b.mirroring }
func (b *fakeBus) IRQTick()                      { b.irqTicks++ }
func (b *fakeBus) TriggerNMI()                   { b.nmiCount++ }

type fakeRenderer struct {
	updates int
}

func (r *fakeRenderer) Init()                                         {}
func (r *fakeRenderer) Cleanup()                                      {}
func (r *fakeRenderer) Update()                                       { r.updates++ }
func (r *fakeRenderer) Clear(Color)                                   {}
func (r *fakeRenderer) SetPixel(PixelLayer, int, int, Color)          {}
func (r *fakeRenderer) SetTransparentPixel(int, int)                  {}
func (r *fakeRenderer) IsTransparentPixel(int, int) bool              { return true }

func newTestPPU() (*PPU, *fakeBus, *fakeRenderer) {
	bus := &fakeBus{}
	rend := &fakeRenderer{}
	return New(bus, rend), bus, rend
}

func TestPPUSTATUSReadClearsVBlankAndLatch(t *testing.T) {
	p, _, _ := newTestPPU()
	p.status |= StatusVBlank
	p.w = true

	got := p.ReadRegister(PPUSTATUS)
	if got&StatusVBlank == 0 {
		t.Error("PPUSTATUS read didn't return vblank bit before clearing it")
	}
	if p.status&StatusVBlank != 0 {
		t.Error("vblank bit not cleared after PPUSTATUS read")
	}
	if p.w {
		t.Error("write toggle not cleared after PPUSTATUS read")
	}
}

func TestPPUADDRTwoWriteLatchesV(t *testing.T) {
	p, _, _ := newTestPPU()
	p.WriteRegister(PPUADDR, 0x21)
	p.WriteRegister(PPUADDR, 0x08)
	if p.v.data != 0x2108 {
		t.Errorf("v = %#04x, want 0x2108", p.v.data)
	}
}

func TestPPUDATAIncrementsByControlBit(t *testing.T) {
	p, bus, _ := newTestPPU()
	bus.chr[0x0010] = 0x42

	p.WriteRegister(PPUADDR, 0x00)
	p.WriteRegister(PPUADDR, 0x10)
	_ = p.ReadRegister(PPUDATA) // primes the read buffer
	if got := p.ReadRegister(PPUDATA); got != 0x42 {
		t.Errorf("buffered PPUDATA read = %#02x, want 0x42", got)
	}
	if p.v.data != 0x0012 {
		t.Errorf("v after two PPUDATA reads = %#04x, want 0x0012 (+1 each)", p.v.data)
	}
}

func TestPaletteReadIsNotBuffered(t *testing.T) {
	p, _, _ := newTestPPU()
	p.paletteTable[0] = 0x16

	p.WriteRegister(PPUADDR, 0x3F)
	p.WriteRegister(PPUADDR, 0x00)
	if got := p.ReadRegister(PPUDATA); got != 0x16 {
		t.Errorf("palette PPUDATA read = %#02x, want 0x16 (unbuffered)", got)
	}
}

func TestOAMDMAFillsOAMFromCurrentAddr(t *testing.T) {
	p, _, _ := newTestPPU()
	p.WriteRegister(OAMADDR, 0x02)

	var page [256]uint8
	page[0] = 0xAA
	p.WriteOAMDMA(page)

	if p.oamData[2] != 0xAA {
		t.Errorf("oamData[2] = %#02x, want 0xAA", p.oamData[2])
	}
}

func TestNMIFiresOnceWhenVBlankStarts(t *testing.T) {
	p, bus, _ := newTestPPU()
	p.ctrl |= CtrlNMIEnable
	p.scanline = vblankStart
	p.scandot = 1

	p.Tick(1)
	p.Tick(1)

	if bus.nmiCount != 1 {
		t.Errorf("NMI fired %d times entering vblank, want exactly 1", bus.nmiCount)
	}
}

func TestSpriteOverflowDetectsMoreThanEightSprites(t *testing.T) {
	p, _, _ := newTestPPU()
	p.mask |= MaskShowSprites

	for i := 0; i < 9; i++ {
		base := i * 4
		p.oamData[base] = 9 // y=9, so it covers scanline 10 (y+1..y+1+8)
		p.oamData[base+1] = 0
		p.oamData[base+2] = 0
		p.oamData[base+3] = uint8(i * 8)
	}

	var bgOpaque [screenWidth]bool
	p.renderSpritesLine(10, bgOpaque)

	if p.status&StatusSpriteOverflow == 0 {
		t.Error("sprite overflow not set with 9 sprites on one scanline")
	}
}

func TestIncCoarseXWrapsNametable(t *testing.T) {
	l := loopy{}
	l.setCoarseX(31)
	incCoarseX(&l)
	if l.coarseX() != 0 {
		t.Errorf("coarseX after wrap = %d, want 0", l.coarseX())
	}
	if l.nametableX() != 1 {
		t.Errorf("nametableX after coarseX wrap = %d, want 1 (toggled)", l.nametableX())
	}
}
