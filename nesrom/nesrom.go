package nesrom

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidRom is returned when a ROM file's header magic or block
// layout doesn't match the iNES format.
var ErrInvalidRom = errors.New("invalid rom")

const (
	TrainerSize = 512

	// iNES on-disk units.
	prgUnitSize = 16384
	chrUnitSize = 8192

	// Internal page granularity exposed to the cartridge bank maps.
	PRGPageSize = 8192
	CHRPageSize = 1024

	prgPagesPerUnit = prgUnitSize / PRGPageSize
	chrPagesPerUnit = chrUnitSize / CHRPageSize

	// CHR-RAM fallback size, in 1 KB pages, when a ROM carries no CHR data.
	chrRAMPages = 8
)

// ROM holds an immutable, fully loaded iNES image: a parsed header plus
// PRG and CHR data split into the page granularity the cartridge bank
// maps operate on (8 KB PRG pages, 1 KB CHR pages).
type ROM struct {
	path    string
	h       *header
	trainer []byte
	prg     [][]byte // each PRGPageSize bytes
	chr     [][]byte // each CHRPageSize bytes
	chrIsRAM bool
}

// New loads and parses the iNES ROM at path.
func New(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read ROM file %q: %w", path, err)
	}

	if len(data) < 16 {
		return nil, fmt.Errorf("%w: file too short", ErrInvalidRom)
	}

	h, err := parseHeader(data[:16])
	if err != nil {
		return nil, err
	}

	r := &ROM{path: path, h: h}
	off := 16

	if h.hasTrainer() {
		if len(data) < off+TrainerSize {
			return nil, fmt.Errorf("%w: truncated trainer", ErrInvalidRom)
		}
		r.trainer = append([]byte(nil), data[off:off+TrainerSize]...)
		off += TrainerSize
	}

	prgBytes := prgUnitSize * int(h.prgSize)
	if len(data) < off+prgBytes {
		return nil, fmt.Errorf("%w: truncated PRG data (have %d, want %d)", ErrInvalidRom, len(data)-off, prgBytes)
	}
	r.prg = splitPages(data[off:off+prgBytes], PRGPageSize)
	off += prgBytes

	chrBytes := chrUnitSize * int(h.chrSize)
	if h.chrSize == 0 {
		r.chrIsRAM = true
		r.chr = make([][]byte, chrRAMPages)
		for i := range r.chr {
			r.chr[i] = make([]byte, CHRPageSize)
		}
	} else {
		if len(data) < off+chrBytes {
			return nil, fmt.Errorf("%w: truncated CHR data (have %d, want %d)", ErrInvalidRom, len(data)-off, chrBytes)
		}
		r.chr = splitPages(data[off:off+chrBytes], CHRPageSize)
		off += chrBytes
	}

	return r, nil
}

func splitPages(data []byte, pageSize int) [][]byte {
	n := len(data) / pageSize
	pages := make([][]byte, n)
	for i := 0; i < n; i++ {
		pages[i] = data[i*pageSize : (i+1)*pageSize]
	}
	return pages
}

// NumPRGPages returns the number of 8 KB PRG pages available.
func (r *ROM) NumPRGPages() int { return len(r.prg) }

// NumCHRPages returns the number of 1 KB CHR pages available (CHR-RAM
// counts the same as CHR-ROM here).
func (r *ROM) NumCHRPages() int { return len(r.chr) }

// PRGPage returns the raw bytes of PRG page i.
func (r *ROM) PRGPage(i int) []byte { return r.prg[i] }

// CHRPage returns the raw bytes of CHR page i. When the ROM is CHR-RAM
// backed, these bytes are writable in place.
func (r *ROM) CHRPage(i int) []byte { return r.chr[i] }

// IsCHRRAM reports whether CHR memory is RAM (true) or ROM (false).
func (r *ROM) IsCHRRAM() bool { return r.chrIsRAM }

// HasTrainer reports whether a 512-byte trainer block preceded PRG data.
func (r *ROM) HasTrainer() bool { return r.h.hasTrainer() }

// Trainer returns the trainer bytes, or nil if absent.
func (r *ROM) Trainer() []byte { return r.trainer }

// MapperID returns the iNES mapper number.
func (r *ROM) MapperID() uint8 { return r.h.mapperNum() }

// Mirroring returns the header's mirroring hint.
func (r *ROM) Mirroring() uint8 { return r.h.mirroringMode() }

// HasSRAM reports whether the cartridge exposes battery-backed save RAM.
func (r *ROM) HasSRAM() bool { return r.h.hasSRAM() }

func (r *ROM) String() string {
	return fmt.Sprintf("%s (%d PRG pages, %d CHR pages, CHR-RAM=%v)", r.h, len(r.prg), len(r.chr), r.chrIsRAM)
}
