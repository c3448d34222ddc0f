// Command nescore runs an NES ROM: parse the cartridge, wire up the
// CPU/PPU/mapper bus, and drive it from ebiten's game loop.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/bdwalton/nescore/cartridge"
	"github.com/bdwalton/nescore/console"
	"github.com/bdwalton/nescore/nesrom"
)

var (
	romFile    = flag.String("nes_rom", "", "Path to the NES ROM to run.")
	logPath    = flag.String("log", "", "Optional path of a CPU trace log file; the file is created in windowed runs, but no trace is written to it.")
	nestest    = flag.Bool("nestest", false, "Run in nestest automation mode (CPU starts at 0xC000).")
	blargh     = flag.Bool("blargh", false, "Run headless against a Blargh-style test ROM and report its result byte.")
	fullscreen = flag.Bool("fullscreen", false, "Start the window in fullscreen mode.")
)

func main() {
	flag.Parse()

	if *romFile == "" {
		log.Fatalf("missing required -nes_rom")
	}

	rom, err := nesrom.New(*romFile)
	if err != nil {
		log.Fatalf("invalid ROM: %v", err)
	}

	cart, err := cartridge.New(rom)
	if err != nil {
		log.Fatalf("couldn't build cartridge: %v", err)
	}

	bus := console.New(cart)

	if *nestest || *blargh {
		runHeadless(bus)
		return
	}

	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Fatalf("couldn't open -log file: %v", err)
		}
		defer f.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)

	ebiten.SetFullscreen(*fullscreen)

	if err := ebiten.RunGame(bus); err != nil {
		log.Fatal(err)
	}

	cancel()
	os.Exit(0)
}
