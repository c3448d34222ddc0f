// Package mos6502 implements the NMOS 6502 core used by the console:
// the full official instruction set plus the commonly-relied-upon
// illegal opcodes, a queue-based interrupt model (NMI always takes
// priority over a pending IRQ), and a Step() that reports the number
// of master cycles it consumed so the caller can keep other
// subsystems in lockstep.
package mos6502

import (
	"context"
	"fmt"
	"time"
)

// Status flags, bit order matches the hardware P register.
const (
	FlagCarry     uint8 = 1 << 0
	FlagZero      uint8 = 1 << 1
	FlagInterrupt uint8 = 1 << 2
	FlagDecimal   uint8 = 1 << 3
	FlagBreak     uint8 = 1 << 4
	FlagUnused    uint8 = 1 << 5
	FlagOverflow  uint8 = 1 << 6
	FlagNegative  uint8 = 1 << 7
)

const stackPage = 0x0100

const (
	resetVector = 0xFFFC
	nmiVector   = 0xFFFA
	irqVector   = 0xFFFE
)

// Bus is the memory the CPU executes against. The console package
// satisfies this by routing through RAM mirrors, PPU registers and the
// cartridge.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}

// intKind distinguishes queued interrupt requests; NMI always jumps
// the IRQ queue.
type intKind uint8

const (
	intNMI intKind = iota
	intIRQ
)

// CPU is the 6502 register file plus the bits this core needs beyond
// silicon: an interrupt queue (real hardware polls an IRQ line
// every cycle, but an event queue is the natural shape for a
// bus-driven emulator), and a NESTestMode flag that reproduces
// nestest.nes's documented automated-test entry point quirk.
type CPU struct {
	bus Bus

	acc, x, y uint8
	status    uint8
	sp        uint8
	pc        uint16

	cycles uint64 // running total of consumed master cycles
	halted bool

	pendingNMI bool
	pendingIRQ bool

	// NESTestMode makes Reset start PC at 0xC000 instead of the reset
	// vector, matching the fixed entry point nestest.nes's automation
	// expects.
	NESTestMode bool

	lastOpcodes uint32 // rolling window of the last 4 opcodes fetched, newest in the low byte
}

// New returns a CPU wired to bus. Call Reset to bring it to the
// power-on state before stepping.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.Reset()
	return c
}

// Reset restores power-on register state and loads PC from the reset
// vector (or 0xC000, under NESTestMode).
func (c *CPU) Reset() {
	c.acc, c.x, c.y = 0, 0, 0
	c.sp -= 3
	c.status = FlagUnused | FlagInterrupt
	c.pendingNMI = false
	c.pendingIRQ = false
	c.halted = false

	if c.NESTestMode {
		c.pc = 0xC000
	} else {
		c.pc = c.read16(resetVector)
	}
}

func (c *CPU) read(addr uint16) uint8     { return c.bus.Read(addr) }
func (c *CPU) write(addr uint16, v uint8) { c.bus.Write(addr, v) }

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read(addr))
	hi := uint16(c.read(addr + 1))
	return lo | hi<<8
}

// read16bug reproduces the 6502's indirect-JMP page-wrap bug: if addr
// is the last byte of a page, the high byte is fetched from the start
// of the SAME page rather than the next one.
func (c *CPU) read16bug(addr uint16) uint16 {
	lo := uint16(c.read(addr))
	hiAddr := (addr & 0xFF00) | uint16(uint8(addr)+1)
	hi := uint16(c.read(hiAddr))
	return lo | hi<<8
}

func (c *CPU) push(v uint8) {
	c.write(stackPage+uint16(c.sp), v)
	c.sp--
}

func (c *CPU) pop() uint8 {
	c.sp++
	return c.read(stackPage + uint16(c.sp))
}

func (c *CPU) push16(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return lo | hi<<8
}

func (c *CPU) setFlag(flag uint8, on bool) {
	if on {
		c.status |= flag
	} else {
		c.status &^= flag
	}
}

func (c *CPU) flag(flag uint8) bool { return c.status&flag != 0 }

func (c *CPU) setZN(v uint8) {
	c.setFlag(FlagZero, v == 0)
	c.setFlag(FlagNegative, v&0x80 != 0)
}

// QueueNMI latches a non-maskable interrupt; it is serviced before the
// next instruction fetch regardless of a pending IRQ.
func (c *CPU) QueueNMI() { c.pendingNMI = true }

// QueueIRQ latches a maskable interrupt request. It is ignored at
// service time if FlagInterrupt is set.
func (c *CPU) QueueIRQ() { c.pendingIRQ = true }

// DequeueIRQ clears a pending IRQ request without servicing it, used
// when a mapper (e.g. MMC3) acknowledges its own IRQ line directly.
func (c *CPU) DequeueIRQ() { c.pendingIRQ = false }

// PC reports the program counter, mainly for debugging/BIOS use.
func (c *CPU) PC() uint16 { return c.pc }

// Halted reports whether the CPU has executed a JAM opcode and will
// never fetch another instruction.
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) serviceInterrupts() int {
	if c.pendingNMI {
		c.pendingNMI = false
		c.push16(c.pc)
		c.push((c.status | FlagUnused) &^ FlagBreak)
		c.setFlag(FlagInterrupt, true)
		c.pc = c.read16(nmiVector)
		return 7
	}

	if c.pendingIRQ && !c.flag(FlagInterrupt) {
		c.pendingIRQ = false
		c.push16(c.pc)
		c.push((c.status | FlagUnused) &^ FlagBreak)
		c.setFlag(FlagInterrupt, true)
		c.pc = c.read16(irqVector)
		return 7
	}

	return 0
}

// Step executes one instruction (after servicing any pending
// interrupt) and returns the number of master cycles consumed.
func (c *CPU) Step() int {
	if c.halted {
		return 0
	}

	if n := c.serviceInterrupts(); n > 0 {
		c.cycles += uint64(n)
		return n
	}

	opcode := c.read(c.pc)
	c.lastOpcodes = c.lastOpcodes<<8 | uint32(opcode)

	entry := opcodeTable[opcode]
	if entry.fn == nil {
		panic(fmt.Sprintf("mos6502: unimplemented opcode 0x%02X at pc=0x%04X", opcode, c.pc))
	}

	startPC := c.pc
	c.pc++

	addr, pageCrossed := c.resolveOperand(entry.mode)

	cycles := int(entry.cycles)
	if entry.pageCrossExtra && pageCrossed {
		cycles++
	}

	entry.fn(c, addr, entry.mode)

	// A branch taken is detected by its handler moving pc somewhere
	// other than just past the operand; that adds one cycle, and one
	// more if the branch target is on a different page.
	if entry.isBranch && c.pc != startPC+uint16(entry.bytes) {
		cycles++
		if (startPC+uint16(entry.bytes))&0xFF00 != c.pc&0xFF00 {
			cycles++
		}
	}

	c.cycles += uint64(cycles)
	return cycles
}

// Run calls Step once per tick of a ticker running at the NTSC CPU
// clock rate (one instruction per tick, not one cycle), until ctx is
// cancelled. The console's Run loop and the headless harness drive
// the CPU through console.Bus instead and do not use it.
func (c *CPU) Run(ctx context.Context) error {
	const masterHz = 1789773
	ticker := time.NewTicker(time.Second / masterHz)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Snapshot is a read-only view of CPU state, used by debug tooling and
// trace-comparison tests (nestest golden logs, Blargh harness output).
type Snapshot struct {
	A, X, Y, P, SP uint8
	PC             uint16
	Cycles         uint64
}

func (c *CPU) Snapshot() Snapshot {
	return Snapshot{A: c.acc, X: c.x, Y: c.y, P: c.status, SP: c.sp, PC: c.pc, Cycles: c.cycles}
}
