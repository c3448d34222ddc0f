// Package console wires the CPU, PPU, cartridge and controllers
// together into the CPU-visible memory map and drives the emulation
// loop.
package console

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/bdwalton/nescore/cartridge"
	"github.com/bdwalton/nescore/mos6502"
	"github.com/bdwalton/nescore/ppu"
	"github.com/bdwalton/nescore/renderer"
)

const (
	nesBaseMemory = 0x800 // 2KB built-in RAM

	maxAddress        = math.MaxUint16
	maxNESBaseRAM     = 0x1FFF
	maxPPURegMirrored = 0x3FFF
	maxIORegister     = 0x4020
	maxSRAM           = 0x8000
	sramBase          = 0x6000
)

const (
	joy1    = 0x4016
	joy2    = 0x4017
	oamdma  = 0x4014
)

// Bus is the NES's CPU-side address space: RAM, the mirrored PPU
// register window, controller ports, OAM DMA, cartridge SRAM and PRG.
// It also implements ebiten.Game so the same struct drives the
// render loop started from main.
type Bus struct {
	cpu  *mos6502.CPU
	ppu  *ppu.PPU
	cart *cartridge.Cartridge
	ram  [nesBaseMemory]uint8

	rend *renderer.EbitenRenderer

	ctrl1, ctrl2  controller
	lastJoyOdd    bool

	ticks uint64
}

// New wires a Bus around cart, ready to Run.
func New(cart *cartridge.Cartridge) *Bus {
	rend := renderer.NewEbitenRenderer()
	b := &Bus{cart: cart, rend: rend}

	b.cpu = mos6502.New(b)
	b.ppu = ppu.New(b, rend)

	ebiten.SetWindowSize(256*2, 240*2)
	ebiten.SetWindowTitle("nescore")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	return b
}

// --- ppu.Bus ---

func (b *Bus) ReadCHR(addr uint16) uint8     { return b.cart.ReadCHR(addr) }
func (b *Bus) WriteCHR(addr uint16, v uint8) { b.cart.WriteCHR(addr, v) }
func (b *Bus) Mirroring() uint8              { return uint8(b.cart.Mirroring()) }
func (b *Bus) IRQTick()                      { b.cart.IRQTick() }

// TriggerNMI is called by the PPU on entering vblank (with NMI
// enabled); it queues the interrupt for the CPU's next fetch.
func (b *Bus) TriggerNMI() { b.cpu.QueueNMI() }

// EnableNESTestMode switches the CPU into nestest.nes's documented
// automation entry point (PC = 0xC000 instead of the reset vector)
// and re-applies reset so the new entry point takes effect.
func (b *Bus) EnableNESTestMode() {
	b.cpu.NESTestMode = true
	b.cpu.Reset()
}

// Step executes a single CPU instruction, advances the PPU in step
// with it, and reports the CPU's post-instruction register snapshot -
// the primitive headless trace/test harnesses drive directly instead
// of going through Run's goroutine loop.
func (b *Bus) Step() mos6502.Snapshot {
	if b.cart.IRQPending() {
		b.cpu.QueueIRQ()
	}
	cycles := b.cpu.Step()
	b.ppu.Tick(cycles * 3)
	return b.cpu.Snapshot()
}

// ReadMem exposes a CPU-bus read for headless test harnesses that
// need to poll a fixed memory location (Blargh-style status bytes).
func (b *Bus) ReadMem(addr uint16) uint8 { return b.Read(addr) }

// --- ebiten.Game ---

func (b *Bus) Layout(outsideWidth, outsideHeight int) (int, int) { return 256, 240 }

func (b *Bus) Draw(screen *ebiten.Image) {
	screen.DrawImage(b.rend.Image(), nil)
}

// Update is required by ebiten.Game but the emulation itself runs in
// Run, driven from its own goroutine rather than ebiten's frame tick.
func (b *Bus) Update() error { return nil }

// --- mos6502.Bus: CPU-visible memory map ---

func (b *Bus) Read(addr uint16) uint8 {
	switch {
	case addr <= maxNESBaseRAM:
		return b.ram[addr&0x07FF]
	case addr <= maxPPURegMirrored:
		return b.ppu.ReadRegister(0x2000 + addr&0x0007)
	case addr == joy1:
		return b.ctrl1.read()
	case addr == joy2:
		return b.ctrl2.read()
	case addr < maxIORegister:
		return 0 // APU and remaining IO registers are not emulated
	case addr < sramBase:
		return 0
	case addr < maxSRAM:
		return b.cart.ReadSRAM(addr)
	default:
		return b.cart.ReadPRG(addr)
	}
}

func (b *Bus) Write(addr uint16, val uint8) {
	switch {
	case addr <= maxNESBaseRAM:
		b.ram[addr&0x07FF] = val
	case addr <= maxPPURegMirrored:
		b.ppu.WriteRegister(0x2000+addr&0x0007, val)
	case addr == oamdma:
		b.doOAMDMA(val)
	case addr == joy1:
		b.writeJoy(val)
	case addr == joy2:
		// Port 2 carries no physical input in this core; writes are
		// accepted (real hardware's strobe is shared) but produce no
		// additional latch beyond what writeJoy already did via port 1.
	case addr < maxIORegister:
		// remaining APU/IO registers: accepted, not emulated
	case addr < sramBase:
		// open bus
	case addr < maxSRAM:
		b.cart.WriteSRAM(addr, val)
	default:
		if b.cart.WritePRG(addr, val) {
			b.cpu.DequeueIRQ()
		}
	}
}

// writeJoy implements the documented strobe protocol: a write with an
// even low bit following one with an odd low bit resets (latches)
// both controller shift registers.
func (b *Bus) writeJoy(val uint8) {
	odd := val&0x01 == 1
	if !odd && b.lastJoyOdd {
		b.ctrl1.latch(true)
		b.ctrl2.latch(false)
	}
	b.lastJoyOdd = odd
}

func (b *Bus) doOAMDMA(page uint8) {
	var data [256]uint8
	base := uint16(page) << 8
	for i := range data {
		data[i] = b.Read(base + uint16(i))
	}
	b.ppu.WriteOAMDMA(data)
	// 513-514 CPU cycles are consumed transferring OAM; approximated
	// here by advancing the PPU 512 CPU cycles' worth (512*3 PPU
	// cycles). The CPU's own cycle count is not charged for the
	// transfer.
	b.ppu.Tick(512 * 3)
}

func readAddress(prompt string) uint16 {
	var a uint16
	fmt.Print(prompt)
	fmt.Scanf("%04x\n", &a)
	return a
}

// Run drives the emulation: each CPU instruction is stepped, then the
// PPU is advanced by 3 PPU cycles per consumed CPU cycle, and any
// pending mapper IRQ is delivered to the CPU.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if b.cpu.Halted() {
				return
			}

			if b.cart.IRQPending() {
				b.cpu.QueueIRQ()
			}

			cycles := b.cpu.Step()
			b.ppu.Tick(cycles * 3)
			b.ticks += uint64(cycles)
		}
	}
}

// BIOS is a small interactive debug REPL: breakpoints, single
// stepping, memory and stack inspection.
func (b *Bus) BIOS(ctx context.Context) {
	sigQuit := make(chan os.Signal, 1)
	signal.Notify(sigQuit, syscall.SIGINT, syscall.SIGTERM)

	breaks := make(map[uint16]struct{})

	for {
		snap := b.cpu.Snapshot()
		fmt.Printf("PC=%04x A=%02x X=%02x Y=%02x P=%02x SP=%02x cycles=%d\n\n",
			snap.PC, snap.A, snap.X, snap.Y, snap.P, snap.SP, snap.Cycles)
		fmt.Println("(B)reak - add breakpoint")
		fmt.Println("(C)lear - clear breakpoints")
		fmt.Println("(R)un - run to completion")
		fmt.Println("(S)tep - step the cpu one instruction")
		fmt.Println("R(e)set - hit the reset button")
		fmt.Println("(M)emory - display a memory range")
		fmt.Println("S(t)ack - show top of the stack")
		fmt.Println("PP(U) - show PPU status")
		fmt.Println("(Q)uit - shut down")
		fmt.Print("Choice: ")

		var in rune
		fmt.Scanf("%c\n", &in)

		switch in {
		case 'b', 'B':
			breaks[readAddress("Breakpoint (eg: ff15): ")] = struct{}{}
		case 'c', 'C':
			breaks = make(map[uint16]struct{})
		case 'q', 'Q':
			return
		case 'r', 'R':
			cctx, cancel := context.WithCancel(ctx)
			go func(ctx context.Context) {
				for {
					select {
					case <-sigQuit:
						cancel()
					case <-ctx.Done():
						return
					}
				}
			}(cctx)

			for {
				pc := b.cpu.PC()
				if _, hit := breaks[pc]; hit {
					break
				}
				select {
				case <-cctx.Done():
					cancel()
					return
				default:
				}
				if b.cpu.Halted() {
					break
				}
				cycles := b.cpu.Step()
				b.ppu.Tick(cycles * 3)
			}
			cancel()
		case 's', 'S':
			cycles := b.cpu.Step()
			b.ppu.Tick(cycles * 3)
		case 'u', 'U':
			fmt.Printf("PPUSTATUS=%02x\n\n", b.ppu.Status())
		case 'e', 'E':
			b.cpu.Reset()
		case 't', 'T':
			fmt.Println()
			for i := 0; i < 3; i++ {
				addr := uint16(0x01FD) + uint16(i)
				fmt.Printf("0x%04x: 0x%02x ", addr, b.Read(addr))
			}
			fmt.Printf("\n\n")
		case 'm', 'M':
			fmt.Println()
			low := readAddress("Low address (eg f00d): ")
			high := readAddress("High address (eg beef): ")
			fmt.Println()

			x := 1
			for i := low; ; i++ {
				fmt.Printf("0x%04x: 0x%02x ", i, b.Read(i))
				if x%5 == 0 {
					fmt.Println()
				}
				if i == high || i == math.MaxUint16 {
					break
				}
				x++
			}
			fmt.Printf("\n\n")
		}
	}
}
