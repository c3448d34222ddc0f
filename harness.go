package main

import (
	"fmt"

	"github.com/bdwalton/nescore/console"
)

// These constants mirror the status byte convention Blargh's test ROMs
// write to $6000: still running, or a completion code where 0 means
// every check passed.
const (
	blarghRunning = 0x80
	blarghPassed  = 0x00
)

// runHeadless drives bus without opening a window, for -nestest and
// -blargh automation: nestest compares CPU traces against a golden
// log externally (the snapshot is printed per step so it can be
// diffed), while Blargh ROMs self-report a status byte at $6000 plus
// a NUL-terminated message at $6004.
func runHeadless(bus *console.Bus) {
	if *nestest {
		bus.EnableNESTestMode()
	}

	const maxSteps = 20_000_000

	for i := 0; i < maxSteps; i++ {
		snap := bus.Step()

		if *nestest {
			fmt.Printf("%04X A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d\n",
				snap.PC, snap.A, snap.X, snap.Y, snap.P, snap.SP, snap.Cycles)
		}

		if *blargh {
			status := bus.ReadMem(0x6000)
			// The status byte only counts once the ROM has written
			// its DE B0 61 signature to $6001-$6003. The first
			// non-running status seen after that is reported.
			signed := bus.ReadMem(0x6001) == 0xDE && bus.ReadMem(0x6002) == 0xB0 && bus.ReadMem(0x6003) == 0x61
			if signed && status != blarghRunning {
				fmt.Println(blarghMessage(bus))
				if status != blarghPassed {
					fmt.Printf("FAILED: status=%#02x\n", status)
				}
				return
			}
		}
	}
}

func blarghMessage(bus *console.Bus) string {
	var msg []byte
	for addr := uint16(0x6004); ; addr++ {
		b := bus.ReadMem(addr)
		if b == 0 {
			break
		}
		msg = append(msg, b)
		if len(msg) > 512 {
			break
		}
	}
	return string(msg)
}
