package mos6502

// addrMode enumerates the 6502's addressing modes. The table in
// opcodes.go pairs one of these with every opcode.
type addrMode uint8

const (
	modeImplied addrMode = iota
	modeAccumulator
	modeImmediate
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeIndirect
	modeIndirectX
	modeIndirectY
	modeRelative
)

// resolveOperand reads and consumes the instruction's operand bytes
// (c.pc must point at the first operand byte) and returns the
// effective address together with whether a page boundary was
// crossed computing it. Implied and accumulator modes return (0,
// false); their handlers don't dereference addr.
func (c *CPU) resolveOperand(mode addrMode) (uint16, bool) {
	switch mode {
	case modeImplied, modeAccumulator:
		return 0, false

	case modeImmediate:
		addr := c.pc
		c.pc++
		return addr, false

	case modeZeroPage:
		addr := uint16(c.read(c.pc))
		c.pc++
		return addr, false

	case modeZeroPageX:
		addr := uint16(c.read(c.pc) + c.x)
		c.pc++
		return addr, false

	case modeZeroPageY:
		addr := uint16(c.read(c.pc) + c.y)
		c.pc++
		return addr, false

	case modeAbsolute:
		addr := c.read16(c.pc)
		c.pc += 2
		return addr, false

	case modeAbsoluteX:
		base := c.read16(c.pc)
		c.pc += 2
		addr := base + uint16(c.x)
		return addr, pageCrossed(base, addr)

	case modeAbsoluteY:
		base := c.read16(c.pc)
		c.pc += 2
		addr := base + uint16(c.y)
		return addr, pageCrossed(base, addr)

	case modeIndirect:
		ptr := c.read16(c.pc)
		c.pc += 2
		return c.read16bug(ptr), false

	case modeIndirectX:
		zp := c.read(c.pc) + c.x
		c.pc++
		addr := c.read16bug(uint16(zp))
		return addr, false

	case modeIndirectY:
		zp := c.read(c.pc)
		c.pc++
		base := c.read16bug(uint16(zp))
		addr := base + uint16(c.y)
		return addr, pageCrossed(base, addr)

	case modeRelative:
		offset := int8(c.read(c.pc))
		c.pc++
		return uint16(int32(c.pc) + int32(offset)), false

	default:
		return 0, false
	}
}

func pageCrossed(a, b uint16) bool { return a&0xFF00 != b&0xFF00 }
