package mos6502

import "testing"

type flatMem struct {
	data [65536]uint8
}

func (m *flatMem) Read(addr uint16) uint8     { return m.data[addr] }
func (m *flatMem) Write(addr uint16, v uint8) { m.data[addr] = v }

func newTestCPU() (*CPU, *flatMem) {
	m := &flatMem{}
	m.data[0xFFFC] = 0x00
	m.data[0xFFFD] = 0x80 // reset vector -> 0x8000
	c := New(m)
	return c, m
}

func load(m *flatMem, addr uint16, bytes ...uint8) {
	for i, b := range bytes {
		m.data[addr+uint16(i)] = b
	}
}

func TestResetVector(t *testing.T) {
	c, _ := newTestCPU()
	if c.PC() != 0x8000 {
		t.Errorf("PC after reset = %#04x, want 0x8000", c.PC())
	}
	if c.sp != 0xFD {
		t.Errorf("SP after reset = %#02x, want 0xFD", c.sp)
	}
}

func TestResetDecrementsSPByThree(t *testing.T) {
	c, _ := newTestCPU()
	c.sp = 0x42
	c.Reset()
	if c.sp != 0x3F {
		t.Errorf("SP after second reset = %#02x, want 0x3F (0x42-3)", c.sp)
	}

	c.sp = 0x01
	c.Reset()
	if c.sp != 0xFE {
		t.Errorf("SP after reset from 0x01 = %#02x, want 0xFE (wraps mod 256)", c.sp)
	}
}

func TestLDAImmediateSetsZeroAndNegative(t *testing.T) {
	c, m := newTestCPU()
	load(m, 0x8000, 0xA9, 0x00) // LDA #$00
	c.Step()
	if c.acc != 0 || !c.flag(FlagZero) {
		t.Errorf("LDA #$00: acc=%d zero=%v, want 0,true", c.acc, c.flag(FlagZero))
	}

	c, m = newTestCPU()
	load(m, 0x8000, 0xA9, 0x80) // LDA #$80
	c.Step()
	if c.acc != 0x80 || !c.flag(FlagNegative) {
		t.Errorf("LDA #$80: acc=%#02x negative=%v, want 0x80,true", c.acc, c.flag(FlagNegative))
	}
}

func TestADCCarryAndOverflow(t *testing.T) {
	c, m := newTestCPU()
	load(m, 0x8000, 0xA9, 0x7F, 0x69, 0x01) // LDA #$7F; ADC #$01
	c.Step()
	c.Step()
	if c.acc != 0x80 {
		t.Errorf("acc = %#02x, want 0x80", c.acc)
	}
	if !c.flag(FlagOverflow) {
		t.Error("overflow flag not set after signed overflow")
	}
	if c.flag(FlagCarry) {
		t.Error("carry flag set, want clear")
	}
}

func TestAbsoluteXPageCrossAddsCycle(t *testing.T) {
	c, m := newTestCPU()
	load(m, 0x8000, 0xBD, 0xFF, 0x00) // LDA $00FF,X
	c.x = 1                           // effective address 0x0100: crosses page
	cycles := c.Step()
	if cycles != 5 {
		t.Errorf("cycles = %d, want 5 (4 base + 1 page cross)", cycles)
	}
}

func TestBranchTakenAddsCycle(t *testing.T) {
	c, m := newTestCPU()
	c.setFlag(FlagZero, true)
	load(m, 0x8000, 0xF0, 0x10) // BEQ +16
	cycles := c.Step()
	if cycles != 3 {
		t.Errorf("cycles = %d, want 3 (taken, no page cross)", cycles)
	}
	if c.PC() != 0x8012 {
		t.Errorf("PC = %#04x, want 0x8012", c.PC())
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, m := newTestCPU()
	load(m, 0x8000, 0x20, 0x00, 0x90) // JSR $9000
	load(m, 0x9000, 0x60)             // RTS
	c.Step()
	if c.PC() != 0x9000 {
		t.Errorf("PC after JSR = %#04x, want 0x9000", c.PC())
	}
	c.Step()
	if c.PC() != 0x8003 {
		t.Errorf("PC after RTS = %#04x, want 0x8003", c.PC())
	}
}

func TestNMITakesPriorityOverPendingIRQ(t *testing.T) {
	c, m := newTestCPU()
	m.data[0xFFFA] = 0x00
	m.data[0xFFFB] = 0x70 // NMI vector -> 0x7000
	m.data[0xFFFE] = 0x00
	m.data[0xFFFF] = 0x60 // IRQ vector -> 0x6000
	c.setFlag(FlagInterrupt, false)

	c.QueueIRQ()
	c.QueueNMI()
	c.Step()

	if c.PC() != 0x7000 {
		t.Errorf("PC after simultaneous NMI+IRQ = %#04x, want 0x7000 (NMI wins)", c.PC())
	}
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, m := newTestCPU()
	load(m, 0x8000, 0x6C, 0xFF, 0x02) // JMP ($02FF)
	m.data[0x02FF] = 0x34
	m.data[0x0200] = 0x12 // high byte fetched from 0x0200, not 0x0300
	m.data[0x0300] = 0xFF
	c.Step()
	if c.PC() != 0x1234 {
		t.Errorf("PC = %#04x, want 0x1234 (page-wrap bug)", c.PC())
	}
}

func TestLAXLoadsBothAccAndX(t *testing.T) {
	c, m := newTestCPU()
	m.data[0x10] = 0x42
	load(m, 0x8000, 0xA7, 0x10) // LAX $10
	c.Step()
	if c.acc != 0x42 || c.x != 0x42 {
		t.Errorf("acc=%#02x x=%#02x, want both 0x42", c.acc, c.x)
	}
}

func TestDCPDecrementsAndCompares(t *testing.T) {
	c, m := newTestCPU()
	m.data[0x10] = 0x05
	c.acc = 0x03
	load(m, 0x8000, 0xC7, 0x10) // DCP $10
	c.Step()
	if m.data[0x10] != 0x04 {
		t.Errorf("mem[0x10] = %d, want 4", m.data[0x10])
	}
	if c.flag(FlagCarry) {
		t.Error("carry set after DCP with acc < decremented value, want clear")
	}
}

func TestNESTestModeEntersAt0xC000(t *testing.T) {
	m := &flatMem{}
	c := &CPU{bus: m, NESTestMode: true}
	c.Reset()
	if c.PC() != 0xC000 {
		t.Errorf("PC under NESTestMode = %#04x, want 0xC000", c.PC())
	}
}
