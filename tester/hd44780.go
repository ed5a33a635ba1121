package tester

import (
	"strings"

	"tinygo.org/x/avrdrivers/avr"
)

const (
	lcdRS = 1 << 0
	lcdRW = 1 << 1
	lcdEN = 1 << 2
)

// HD44780 models a character LCD controller on a 4-bit bus: RS on bit 0, RW on bit 1,
// EN on bit 2 and D4-D7 on bits 4-7. Nibbles are latched on the falling edge of EN,
// high nibble first. Until a function set selects 4-bit mode the controller powers up
// in 8-bit mode, where a single strobe is a complete instruction.
type HD44780 struct {
	c Failer

	DDR, PORT, PIN Reg8

	// DDRAM is the display memory, 0x00-0x27 for the first line and 0x40-0x67 for the
	// second.
	DDRAM [0x80]byte
	// Addr is the address counter.
	Addr uint8
	// Lines is 2 once a function set has selected two-line mode.
	Lines int
	// FourBit is set once the interface has been switched to 4 bits.
	FourBit bool
	// DisplayOn, CursorOn and Blink hold the display control flags.
	DisplayOn, CursorOn, Blink bool
	// Commands logs every complete instruction byte in order.
	Commands []byte

	latch   uint8
	half    bool
	hiRS    bool
	hiValue uint8
}

func NewHD44780(c Failer) *HD44780 {
	l := &HD44780{c: c, Lines: 1}
	l.clear()
	l.PORT.OnSet = func(r *Reg8, v uint8) {
		r.Value = v
		l.Latch(v)
	}
	return l
}

// Port returns the port the driver writes.
func (l *HD44780) Port() avr.Port {
	return avr.Port{DDR: &l.DDR, PORT: &l.PORT, PIN: &l.PIN}
}

// Latch presents a new value on the bus pins.
func (l *HD44780) Latch(v uint8) {
	l.c.Helper()
	prev := l.latch
	l.latch = v
	if prev&lcdEN == 0 || v&lcdEN != 0 {
		return
	}
	if prev&lcdRW != 0 {
		l.c.Fatalf("LCD strobed with RW high")
		return
	}
	rs := prev&lcdRS != 0
	nibble := prev & 0xF0

	if !l.FourBit {
		// 8-bit mode: D0-D3 are strapped low, the nibble is the whole byte
		l.complete(rs, nibble)
		return
	}
	if !l.half {
		l.hiRS, l.hiValue, l.half = rs, nibble, true
		return
	}
	l.half = false
	if rs != l.hiRS {
		l.c.Fatalf("RS changed between the nibbles of one byte")
		return
	}
	l.complete(rs, l.hiValue|nibble>>4)
}

func (l *HD44780) complete(rs bool, b byte) {
	if rs {
		l.DDRAM[l.Addr&0x7F] = b
		l.Addr = (l.Addr + 1) & 0x7F
		return
	}
	l.Commands = append(l.Commands, b)
	switch {
	case b&0x80 != 0:
		l.Addr = b & 0x7F
	case b&0x20 != 0:
		l.FourBit = b&0x10 == 0
		if b&0x08 != 0 {
			l.Lines = 2
		} else {
			l.Lines = 1
		}
	case b&0x08 != 0:
		l.DisplayOn = b&0x04 != 0
		l.CursorOn = b&0x02 != 0
		l.Blink = b&0x01 != 0
	case b&0x02 != 0:
		l.Addr = 0
	case b == 0x01:
		l.clear()
		l.Addr = 0
	}
}

func (l *HD44780) clear() {
	for i := range l.DDRAM {
		l.DDRAM[i] = ' '
	}
}

// Line returns the 16 visible characters of line 0 or 1.
func (l *HD44780) Line(n int) string {
	base := 0x40 * n
	return string(l.DDRAM[base : base+16])
}

// Text returns line n without trailing blanks.
func (l *HD44780) Text(n int) string {
	return strings.TrimRight(l.Line(n), " ")
}
