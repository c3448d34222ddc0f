package cartridge

// GNROM (mapper 66): a single PRG write packs both a 32KB PRG bank
// select (bits 4-5) and an 8KB CHR bank select (bits 0-1) into one byte.

func (c *Cartridge) resetGNROM() {
	c.gnPrgBank = 0
	c.gnChrBank = 0
	c.mapPRG32k(0)
	c.mapCHR8k(0)
}

func (c *Cartridge) writeGNROM(addr uint16, val uint8) {
	c.gnChrBank = val & 0x03
	c.gnPrgBank = (val >> 4) & 0x03
	c.mapPRG32k(int(c.gnPrgBank))
	c.mapCHR8k(int(c.gnChrBank))
}
