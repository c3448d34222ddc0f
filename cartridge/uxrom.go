package cartridge

// UxROM (mapper 2): 0x8000 selects the 16KB bank visible at 0x8000;
// 0xC000 is permanently the last 16KB bank.

func (c *Cartridge) resetUxROM() {
	c.uxPrgBank = 0
	c.mapPRG16k(0, 0)
	c.mapPRG16k(1, c.numPRGPages/2-1)
	c.mapCHR8k(0)
}

func (c *Cartridge) writeUxROM(addr uint16, val uint8) {
	c.uxPrgBank = val & 0x0F
	c.mapPRG16k(0, int(c.uxPrgBank))
}
