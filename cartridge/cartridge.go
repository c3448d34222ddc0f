// Package cartridge implements the PRG/CHR bank-switching logic of the
// supported NES cartridge boards ("mappers"): NROM, MMC1, UxROM, CNROM,
// MMC3, AxROM, MMC2 and GNROM.
//
// A small, closed set of boards is modeled as one tagged-variant
// Cartridge rather than a mapper-per-type interface hierarchy: the four
// hot operations (PRG/CHR read and write) are identical shape across
// every board, and a switch on mapperID is both cheaper and easier to
// audit than dynamic dispatch across eight implementations.
package cartridge

import (
	"errors"
	"fmt"

	"github.com/bdwalton/nescore/nesrom"
)

// ErrUnsupportedMapper is returned by New when the ROM's mapper id isn't
// one of the boards this core implements.
var ErrUnsupportedMapper = errors.New("unsupported mapper")

// Mirroring identifies how the PPU should fold nametable addresses.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorSingleLower
	MirrorSingleUpper
	MirrorFourScreen
)

const sramSize = 0x2000 // 0x6000-0x7FFF

// Cartridge holds the ROM's page data plus every mapper's register
// state. Only the fields relevant to the loaded ROM's mapperID are ever
// touched; the rest sit unused, same as a union would in a lower-level
// language.
type Cartridge struct {
	rom      *nesrom.ROM
	mapperID uint8

	numPRGPages int // 8KB pages
	numCHRPages int // 1KB pages

	prgMap [4]int // 8KB slots, 0x8000-0xFFFF
	chrMap [8]int // 1KB slots, 0x0000-0x1FFF

	mirroring Mirroring
	sram      [sramSize]byte
	hasSRAM   bool

	// MMC1 (mapper 1)
	mmc1Shift uint8
	mmc1Count uint8
	mmc1Ctrl  uint8
	mmc1Chr0  uint8
	mmc1Chr1  uint8
	mmc1Prg   uint8

	// UxROM (mapper 2)
	uxPrgBank uint8

	// CNROM (mapper 3)
	cnChrBank uint8

	// MMC3 (mapper 4)
	mmc3BankSelect  uint8
	mmc3Regs        [8]uint8
	mmc3PrgMode     uint8
	mmc3ChrMode     uint8
	mmc3IrqLatch    uint8
	mmc3IrqCounter  uint8
	mmc3IrqReload   bool
	mmc3IrqEnable   bool
	mmc3IrqPending  bool

	// AxROM (mapper 7)
	aoPrgBank uint8

	// MMC2 (mapper 9)
	mmc2PrgBank uint8
	mmc2Chr0FD  uint8
	mmc2Chr0FE  uint8
	mmc2Chr1FD  uint8
	mmc2Chr1FE  uint8
	mmc2Latch0  uint8
	mmc2Latch1  uint8

	// GNROM (mapper 66)
	gnPrgBank uint8
	gnChrBank uint8
}

var supportedMappers = map[uint8]bool{
	0: true, 1: true, 2: true, 3: true, 4: true, 7: true, 9: true, 66: true,
}

// New builds a Cartridge for rom, dispatching its initial bank layout
// to the mapper named by the ROM's header.
func New(rom *nesrom.ROM) (*Cartridge, error) {
	id := rom.MapperID()
	if !supportedMappers[id] {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMapper, id)
	}

	c := &Cartridge{
		rom:         rom,
		mapperID:    id,
		numPRGPages: rom.NumPRGPages(),
		numCHRPages: rom.NumCHRPages(),
		hasSRAM:     rom.HasSRAM(),
		mirroring:   headerMirroring(rom.Mirroring()),
	}
	c.Reset()

	return c, nil
}

func headerMirroring(m uint8) Mirroring {
	switch m {
	case nesrom.MirrorVertical:
		return MirrorVertical
	case nesrom.MirrorFourScreen:
		return MirrorFourScreen
	default:
		return MirrorHorizontal
	}
}

// Reset installs each mapper's known-good power-on bank configuration.
func (c *Cartridge) Reset() {
	switch c.mapperID {
	case 0:
		c.resetNROM()
	case 1:
		c.resetMMC1()
	case 2:
		c.resetUxROM()
	case 3:
		c.resetCNROM()
	case 4:
		c.resetMMC3()
	case 7:
		c.resetAxROM()
	case 9:
		c.resetMMC2()
	case 66:
		c.resetGNROM()
	}
}

// ReadPRG returns the byte mapped to addr in 0x8000-0xFFFF.
func (c *Cartridge) ReadPRG(addr uint16) uint8 {
	slot := (addr - 0x8000) / 0x2000
	off := (addr - 0x8000) % 0x2000
	return c.rom.PRGPage(c.prgMap[slot])[off]
}

// WritePRG dispatches a PRG-space write to the loaded mapper's register
// logic. It returns true if the write acknowledged (and thus should
// dequeue) a pending mapper IRQ.
func (c *Cartridge) WritePRG(addr uint16, val uint8) bool {
	switch c.mapperID {
	case 1:
		c.writeMMC1(addr, val)
	case 2:
		c.writeUxROM(addr, val)
	case 3:
		c.writeCNROM(addr, val)
	case 4:
		return c.writeMMC3(addr, val)
	case 7:
		c.writeAxROM(addr, val)
	case 9:
		c.writeMMC2PRG(addr, val)
	case 66:
		c.writeGNROM(addr, val)
	}
	return false
}

// ReadCHR returns the byte mapped to addr in 0x0000-0x1FFF. For mapper
// 9 (MMC2), reading pattern data also latches the CHR bank used by
// subsequent reads in that 4KB half.
func (c *Cartridge) ReadCHR(addr uint16) uint8 {
	slot := addr / 1024
	off := addr % 1024
	v := c.rom.CHRPage(c.chrMap[slot])[off]

	if c.mapperID == 9 {
		c.mmc2Latch(addr)
	}

	return v
}

// WriteCHR writes through to CHR-RAM; CHR-ROM writes are ignored.
func (c *Cartridge) WriteCHR(addr uint16, val uint8) {
	if !c.rom.IsCHRRAM() {
		return
	}
	slot := addr / 1024
	off := addr % 1024
	c.rom.CHRPage(c.chrMap[slot])[off] = val
}

// ReadSRAM reads the cartridge's 8KB save-RAM window (0x6000-0x7FFF).
func (c *Cartridge) ReadSRAM(addr uint16) uint8 {
	return c.sram[addr%sramSize]
}

// WriteSRAM writes the cartridge's save-RAM window.
func (c *Cartridge) WriteSRAM(addr uint16, val uint8) {
	c.sram[addr%sramSize] = val
}

// Mirroring reports the cartridge's current nametable mirroring mode.
func (c *Cartridge) Mirroring() Mirroring {
	return c.mirroring
}

// IRQTick is invoked by the PPU on every rendered scanline transition;
// only mapper 4 (MMC3) does anything with it.
func (c *Cartridge) IRQTick() {
	if c.mapperID == 4 {
		c.mmc3IRQTick()
	}
}

// IRQPending reports whether the mapper has an outstanding IRQ request.
func (c *Cartridge) IRQPending() bool {
	return c.mapperID == 4 && c.mmc3IrqPending
}

// AckIRQ clears any outstanding mapper IRQ once the CPU has serviced it.
func (c *Cartridge) AckIRQ() {
	c.mmc3IrqPending = false
}

// --- bank-mapping helpers, shared by every mapper variant ---

func (c *Cartridge) mapPRG8k(slot, page int) {
	c.prgMap[slot] = page % c.numPRGPages
}

func (c *Cartridge) mapPRG16k(half, bank16 int) {
	base := bank16 * 2
	c.mapPRG8k(half*2, base)
	c.mapPRG8k(half*2+1, base+1)
}

func (c *Cartridge) mapPRG32k(bank32 int) {
	base := bank32 * 4
	for i := 0; i < 4; i++ {
		c.mapPRG8k(i, base+i)
	}
}

func (c *Cartridge) mapCHR1k(slot, bank1 int) {
	c.chrMap[slot] = bank1 % c.numCHRPages
}

func (c *Cartridge) mapCHR2k(slot, bank2 int) {
	base := bank2 * 2
	c.mapCHR1k(slot*2, base)
	c.mapCHR1k(slot*2+1, base+1)
}

func (c *Cartridge) mapCHR4k(half, bank4 int) {
	base := bank4 * 4
	for i := 0; i < 4; i++ {
		c.mapCHR1k(half*4+i, base+i)
	}
}

func (c *Cartridge) mapCHR8k(bank8 int) {
	base := bank8 * 8
	for i := 0; i < 8; i++ {
		c.mapCHR1k(i, base+i)
	}
}

// --- mapper 0: NROM ---

func (c *Cartridge) resetNROM() {
	if c.numPRGPages <= 2 { // 16KB ROM: mirror the single bank across both halves
		c.mapPRG16k(0, 0)
		c.mapPRG16k(1, 0)
	} else {
		c.mapPRG32k(0)
	}
	c.mapCHR8k(0)
}
