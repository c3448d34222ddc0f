package cartridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bdwalton/nescore/nesrom"
)

func writeTestROM(t *testing.T, mapperID uint8, prgUnits, chrUnits int) *nesrom.ROM {
	t.Helper()

	lo := mapperID & 0x0F
	hi := mapperID & 0xF0

	header := []byte{
		'N', 'E', 'S', 0x1A,
		byte(prgUnits),
		byte(chrUnits),
		lo << 4,
		hi,
		0, 0, 0, 0, 0, 0, 0, 0,
	}

	data := append([]byte{}, header...)
	data = append(data, make([]byte, prgUnits*16384)...)
	data = append(data, make([]byte, chrUnits*8192)...)

	// Stamp each 8KB PRG page with its index so bank switches are
	// observable.
	prgStart := len(header)
	for page := 0; page < prgUnits*2; page++ {
		data[prgStart+page*8192] = byte(page)
	}

	path := filepath.Join(t.TempDir(), "test.nes")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rom, err := nesrom.New(path)
	if err != nil {
		t.Fatalf("nesrom.New: %v", err)
	}
	return rom
}

func TestNROMSmallMirrorsSingleBank(t *testing.T) {
	rom := writeTestROM(t, 0, 1, 1)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.ReadPRG(0x8000); got != 0 {
		t.Errorf("ReadPRG(0x8000) = %d, want 0", got)
	}
	if got := c.ReadPRG(0xC000); got != 0 {
		t.Errorf("ReadPRG(0xC000) = %d, want 0 (mirrored)", got)
	}
}

func TestUnsupportedMapperRejected(t *testing.T) {
	rom := writeTestROM(t, 99, 1, 1)
	if _, err := New(rom); err == nil {
		t.Fatal("New with unsupported mapper id: want error, got nil")
	}
}

func TestUxROMSelectsLowBankFixesHigh(t *testing.T) {
	rom := writeTestROM(t, 2, 4, 0) // 4 x 16KB = 8 x 8KB pages, numbered 0-7
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Power on: low half is bank 0, high half fixed to the last 16KB bank.
	if got := c.ReadPRG(0xC000); got != 6 {
		t.Errorf("ReadPRG(0xC000) at reset = %d, want 6 (fixed last bank)", got)
	}

	c.WritePRG(0x8000, 3)
	if got := c.ReadPRG(0x8000); got != 6 {
		t.Errorf("ReadPRG(0x8000) after selecting bank 3 = %d, want 6", got)
	}
	if got := c.ReadPRG(0xC000); got != 6 {
		t.Errorf("ReadPRG(0xC000) after selecting PRG bank = %d, want 6 (still fixed)", got)
	}
}

func TestMMC1FiveWriteCommit(t *testing.T) {
	rom := writeTestROM(t, 1, 4, 2)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Select PRG bank 1 via five single-bit writes (LSB first) to the
	// PRG-bank register (0xE000-0xFFFF). Control stays at its reset
	// default, PRG mode 3 (switch 0x8000, fix last bank at 0xC000).
	writeBit := func(addr uint16, bit uint8) {
		c.WritePRG(addr, bit)
	}
	writeBit(0xE000, 1)
	writeBit(0xE000, 0)
	writeBit(0xE000, 0)
	writeBit(0xE000, 0)
	writeBit(0xE000, 0)

	if got := c.ReadPRG(0x8000); got != 2 {
		t.Errorf("ReadPRG(0x8000) after MMC1 bank select = %d, want 2", got)
	}
}

func TestMMC1ResetBitMidSequence(t *testing.T) {
	rom := writeTestROM(t, 1, 4, 2)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WritePRG(0xE000, 1)
	c.WritePRG(0xE000, 1) // only 2 of 5 bits shifted in

	c.WritePRG(0xE000, 0x80) // bit 7 set: resets the shift register

	if c.mmc1Count != 0 || c.mmc1Shift != 0 {
		t.Errorf("mmc1 shift state after reset write: count=%d shift=%d, want 0,0", c.mmc1Count, c.mmc1Shift)
	}
}

func TestMMC3IRQReloadAndFire(t *testing.T) {
	rom := writeTestROM(t, 4, 8, 8)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WritePRG(0xC000, 2) // IRQ latch = 2
	c.WritePRG(0xC001, 0) // request reload on next clock
	c.WritePRG(0xE001, 0) // enable IRQ

	c.IRQTick() // counter is 0 -> reloads to latch (2), no IRQ yet
	if c.IRQPending() {
		t.Fatal("IRQ pending immediately after reload, want false")
	}

	c.IRQTick() // counter 2 -> 1
	if c.IRQPending() {
		t.Fatal("IRQ pending with counter=1, want false")
	}

	c.IRQTick() // counter 1 -> 0, fires
	if !c.IRQPending() {
		t.Fatal("IRQ not pending with counter=0 and enabled, want true")
	}

	c.AckIRQ()
	if c.IRQPending() {
		t.Fatal("IRQ still pending after AckIRQ")
	}
}

func TestMMC3BankSelectSwapsPRGWindow(t *testing.T) {
	rom := writeTestROM(t, 4, 8, 8) // 8 x 16KB = 16 x 8KB PRG pages
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WritePRG(0x8000, 6) // select register 6 (maps to 0x8000, prg mode 0)
	c.WritePRG(0x8001, 4) // bank 4

	if got := c.ReadPRG(0x8000); got != 4 {
		t.Errorf("ReadPRG(0x8000) after R6=4 = %d, want 4", got)
	}
	// 0xE000 is always fixed to the last page.
	if got := c.ReadPRG(0xE000); got != 15 {
		t.Errorf("ReadPRG(0xE000) = %d, want 15 (fixed last page)", got)
	}
}

func TestGNROMPacksPRGAndCHRSelect(t *testing.T) {
	rom := writeTestROM(t, 66, 8, 4) // 8 x 16KB = 4 x 32KB PRG banks, 4 x 8KB CHR banks
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WritePRG(0x8000, (2<<4)|1) // PRG bank 2, CHR bank 1
	if got := c.ReadPRG(0x8000); got != 8 {
		t.Errorf("ReadPRG(0x8000) = %d, want 8 (PRG bank 2 * 4 pages)", got)
	}
}

func TestMMC2LatchTripsOnLowHalfOfTileWindow(t *testing.T) {
	rom := writeTestROM(t, 9, 4, 8)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if c.mmc2Latch0 != 0xFE {
		t.Fatalf("mmc2Latch0 at reset = %#x, want 0xFE", c.mmc2Latch0)
	}

	c.ReadCHR(0x0FD3) // low half of the FD window, not just 0x0FD8-0x0FDF
	if c.mmc2Latch0 != 0xFD {
		t.Errorf("mmc2Latch0 after read at 0x0FD3 = %#x, want 0xFD", c.mmc2Latch0)
	}

	c.ReadCHR(0x0FE3) // low half of the FE window
	if c.mmc2Latch0 != 0xFE {
		t.Errorf("mmc2Latch0 after read at 0x0FE3 = %#x, want 0xFE", c.mmc2Latch0)
	}

	c.ReadCHR(0x1FD4) // mirrored windows in the second 4KB bank
	if c.mmc2Latch1 != 0xFD {
		t.Errorf("mmc2Latch1 after read at 0x1FD4 = %#x, want 0xFD", c.mmc2Latch1)
	}
}

func TestAxROMSelectsFullFourBitBank(t *testing.T) {
	rom := writeTestROM(t, 7, 32, 0) // 32 x 16KB = 64 x 8KB PRG pages, 16 x 32KB banks

	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WritePRG(0x8000, 0x0F) // low nibble = bank 15, would wrap to 7 with a 3-bit mask
	if got := c.ReadPRG(0x8000); got != 15*4 {
		t.Errorf("ReadPRG(0x8000) after selecting bank 15 = %d, want %d", got, 15*4)
	}
}

func TestSRAMReadWrite(t *testing.T) {
	rom := writeTestROM(t, 0, 1, 1)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.WriteSRAM(0x6000, 0x42)
	if got := c.ReadSRAM(0x6000); got != 0x42 {
		t.Errorf("ReadSRAM(0x6000) = %#x, want 0x42", got)
	}
}
