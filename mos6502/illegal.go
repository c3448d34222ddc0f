package mos6502

// The undocumented opcodes below are not part of the official 6502
// instruction set but are relied on by enough commercial NES software
// (and by the test ROMs that exercise this core) that skipping them
// isn't an option. Each is a side effect of how the 6502's internal
// decode PLA aliases unused opcode bits onto combinations of its
// normal ALU and load/store microcode.

func initIllegalOpcodes() {
	// LAX: LDA+LDX in one fetch.
	lax := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		c.acc, c.x = v, v
		c.setZN(v)
	}
	op(0xA7, "LAX", modeZeroPage, 2, 3, false, false, lax)
	op(0xB7, "LAX", modeZeroPageY, 2, 4, false, false, lax)
	op(0xAF, "LAX", modeAbsolute, 3, 4, false, false, lax)
	op(0xBF, "LAX", modeAbsoluteY, 3, 4, true, false, lax)
	op(0xA3, "LAX", modeIndirectX, 2, 6, false, false, lax)
	op(0xB3, "LAX", modeIndirectY, 2, 5, true, false, lax)

	// SAX: stores A&X, sets no flags.
	sax := func(c *CPU, addr uint16, _ addrMode) { c.write(addr, c.acc&c.x) }
	op(0x87, "SAX", modeZeroPage, 2, 3, false, false, sax)
	op(0x97, "SAX", modeZeroPageY, 2, 4, false, false, sax)
	op(0x8F, "SAX", modeAbsolute, 3, 4, false, false, sax)
	op(0x83, "SAX", modeIndirectX, 2, 6, false, false, sax)

	// DCP: DEC then CMP against A.
	dcp := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr) - 1
		c.write(addr, v)
		c.compare(c.acc, v)
	}
	op(0xC7, "DCP", modeZeroPage, 2, 5, false, false, dcp)
	op(0xD7, "DCP", modeZeroPageX, 2, 6, false, false, dcp)
	op(0xCF, "DCP", modeAbsolute, 3, 6, false, false, dcp)
	op(0xDF, "DCP", modeAbsoluteX, 3, 7, false, false, dcp)
	op(0xDB, "DCP", modeAbsoluteY, 3, 7, false, false, dcp)
	op(0xC3, "DCP", modeIndirectX, 2, 8, false, false, dcp)
	op(0xD3, "DCP", modeIndirectY, 2, 8, false, false, dcp)

	// ISC (ISB): INC then SBC.
	isc := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr) + 1
		c.write(addr, v)
		c.addWithCarry(v ^ 0xFF)
	}
	op(0xE7, "ISC", modeZeroPage, 2, 5, false, false, isc)
	op(0xF7, "ISC", modeZeroPageX, 2, 6, false, false, isc)
	op(0xEF, "ISC", modeAbsolute, 3, 6, false, false, isc)
	op(0xFF, "ISC", modeAbsoluteX, 3, 7, false, false, isc)
	op(0xFB, "ISC", modeAbsoluteY, 3, 7, false, false, isc)
	op(0xE3, "ISC", modeIndirectX, 2, 8, false, false, isc)
	op(0xF3, "ISC", modeIndirectY, 2, 8, false, false, isc)

	// SLO: ASL then ORA with the shifted value.
	slo := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		c.setFlag(FlagCarry, v&0x80 != 0)
		v <<= 1
		c.write(addr, v)
		c.acc |= v
		c.setZN(c.acc)
	}
	op(0x07, "SLO", modeZeroPage, 2, 5, false, false, slo)
	op(0x17, "SLO", modeZeroPageX, 2, 6, false, false, slo)
	op(0x0F, "SLO", modeAbsolute, 3, 6, false, false, slo)
	op(0x1F, "SLO", modeAbsoluteX, 3, 7, false, false, slo)
	op(0x1B, "SLO", modeAbsoluteY, 3, 7, false, false, slo)
	op(0x03, "SLO", modeIndirectX, 2, 8, false, false, slo)
	op(0x13, "SLO", modeIndirectY, 2, 8, false, false, slo)

	// RLA: ROL then AND with the rotated value.
	rla := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		carryIn := uint8(0)
		if c.flag(FlagCarry) {
			carryIn = 1
		}
		c.setFlag(FlagCarry, v&0x80 != 0)
		v = v<<1 | carryIn
		c.write(addr, v)
		c.acc &= v
		c.setZN(c.acc)
	}
	op(0x27, "RLA", modeZeroPage, 2, 5, false, false, rla)
	op(0x37, "RLA", modeZeroPageX, 2, 6, false, false, rla)
	op(0x2F, "RLA", modeAbsolute, 3, 6, false, false, rla)
	op(0x3F, "RLA", modeAbsoluteX, 3, 7, false, false, rla)
	op(0x3B, "RLA", modeAbsoluteY, 3, 7, false, false, rla)
	op(0x23, "RLA", modeIndirectX, 2, 8, false, false, rla)
	op(0x33, "RLA", modeIndirectY, 2, 8, false, false, rla)

	// SRE: LSR then EOR with the shifted value.
	sre := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		c.setFlag(FlagCarry, v&0x01 != 0)
		v >>= 1
		c.write(addr, v)
		c.acc ^= v
		c.setZN(c.acc)
	}
	op(0x47, "SRE", modeZeroPage, 2, 5, false, false, sre)
	op(0x57, "SRE", modeZeroPageX, 2, 6, false, false, sre)
	op(0x4F, "SRE", modeAbsolute, 3, 6, false, false, sre)
	op(0x5F, "SRE", modeAbsoluteX, 3, 7, false, false, sre)
	op(0x5B, "SRE", modeAbsoluteY, 3, 7, false, false, sre)
	op(0x43, "SRE", modeIndirectX, 2, 8, false, false, sre)
	op(0x53, "SRE", modeIndirectY, 2, 8, false, false, sre)

	// RRA: ROR then ADC with the rotated value.
	rra := func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		carryIn := uint8(0)
		if c.flag(FlagCarry) {
			carryIn = 0x80
		}
		c.setFlag(FlagCarry, v&0x01 != 0)
		v = v>>1 | carryIn
		c.write(addr, v)
		c.addWithCarry(v)
	}
	op(0x67, "RRA", modeZeroPage, 2, 5, false, false, rra)
	op(0x77, "RRA", modeZeroPageX, 2, 6, false, false, rra)
	op(0x6F, "RRA", modeAbsolute, 3, 6, false, false, rra)
	op(0x7F, "RRA", modeAbsoluteX, 3, 7, false, false, rra)
	op(0x7B, "RRA", modeAbsoluteY, 3, 7, false, false, rra)
	op(0x63, "RRA", modeIndirectX, 2, 8, false, false, rra)
	op(0x73, "RRA", modeIndirectY, 2, 8, false, false, rra)

	// ANC: AND, then copies bit 7 into carry (used as a cheap x2 on A in packed code).
	anc := func(c *CPU, addr uint16, _ addrMode) {
		c.acc &= c.read(addr)
		c.setZN(c.acc)
		c.setFlag(FlagCarry, c.acc&0x80 != 0)
	}
	op(0x0B, "ANC", modeImmediate, 2, 2, false, false, anc)
	op(0x2B, "ANC", modeImmediate, 2, 2, false, false, anc)

	// ALR: AND then LSR A.
	op(0x4B, "ALR", modeImmediate, 2, 2, false, false, func(c *CPU, addr uint16, _ addrMode) {
		c.acc &= c.read(addr)
		c.setFlag(FlagCarry, c.acc&0x01 != 0)
		c.acc >>= 1
		c.setZN(c.acc)
	})

	// ARR: AND then ROR A, with carry/overflow derived from the result's top bits.
	op(0x6B, "ARR", modeImmediate, 2, 2, false, false, func(c *CPU, addr uint16, _ addrMode) {
		c.acc &= c.read(addr)
		carryIn := uint8(0)
		if c.flag(FlagCarry) {
			carryIn = 0x80
		}
		c.acc = c.acc>>1 | carryIn
		c.setZN(c.acc)
		c.setFlag(FlagCarry, c.acc&0x40 != 0)
		c.setFlag(FlagOverflow, (c.acc>>6)&1 != (c.acc>>5)&1)
	})

	// AXS (SBX): (A&X) - operand into X, sets carry like CMP.
	op(0xCB, "AXS", modeImmediate, 2, 2, false, false, func(c *CPU, addr uint16, _ addrMode) {
		v := c.read(addr)
		ax := c.acc & c.x
		c.setFlag(FlagCarry, ax >= v)
		c.x = ax - v
		c.setZN(c.x)
	})

	// SHY/SHX: unstable on real hardware when the index carries into
	// the high byte; modeled as the common, non-carry case.
	op(0x9C, "SHY", modeAbsoluteX, 3, 5, false, false, func(c *CPU, addr uint16, _ addrMode) {
		c.write(addr, c.y&uint8(addr>>8+1))
	})
	op(0x9E, "SHX", modeAbsoluteY, 3, 5, false, false, func(c *CPU, addr uint16, _ addrMode) {
		c.write(addr, c.x&uint8(addr>>8+1))
	})
}

// initUndocumentedNOPs fills in the opcode slots that merely waste
// cycles and bytes without touching registers or memory semantics -
// the decode PLA falls through to a NOP-shaped microcode sequence for
// these, but still fetches the same number of operand bytes a real
// instruction at that addressing mode would.
func initUndocumentedNOPs() {
	nop := func(c *CPU, _ uint16, _ addrMode) {}

	for _, c := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		op(c, "NOP", modeImplied, 1, 2, false, false, nop)
	}
	for _, c := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		op(c, "NOP", modeImmediate, 2, 2, false, false, nop)
	}
	for _, c := range []uint8{0x04, 0x44, 0x64} {
		op(c, "NOP", modeZeroPage, 2, 3, false, false, nop)
	}
	for _, c := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		op(c, "NOP", modeZeroPageX, 2, 4, false, false, nop)
	}
	op(0x0C, "NOP", modeAbsolute, 3, 4, false, false, nop)
	for _, c := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		op(c, "NOP", modeAbsoluteX, 3, 4, true, false, nop)
	}
}

// initJamOpcodes fills the remaining undefined slots with the "JAM"
// behavior real NMOS 6502s exhibit for them: the bus locks up and the
// CPU never fetches another instruction. Software never relies on
// hitting one deliberately, so halting Step's caller is sufficient.
func initJamOpcodes() {
	jam := func(c *CPU, _ uint16, _ addrMode) { c.halted = true; c.pc-- }

	for _, code := range []uint8{0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2} {
		op(code, "JAM", modeImplied, 1, 2, false, false, jam)
	}
}
