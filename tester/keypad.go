package tester

import (
	"time"

	"tinygo.org/x/avrdrivers/avr"
)

// Keypad models a 4x4 contact matrix wired to one port: rows on bits 4-7, driven by
// the MCU, and columns on bits 0-3, pulled up. A closed contact pulls its column low
// while its row is driven low.
//
// Contacts are scheduled against the clock, so bounce and hold times are expressed in
// virtual time. Every sample costs SampleCost of CPU time.
type Keypad struct {
	clk *Clock

	DDR, PORT, PIN Reg8

	// SampleCost is the virtual time one PIN read takes.
	SampleCost time.Duration
	// Samples counts PIN reads.
	Samples int

	contacts []contact
}

type contact struct {
	row, col int
	from, to time.Duration // relative to the clock start; to <= 0 means forever
}

// NewKeypad returns a matrix with every contact open.
func NewKeypad(clk *Clock) *Keypad {
	k := &Keypad{clk: clk, SampleCost: 10 * time.Microsecond}
	k.PIN.OnGet = func(r *Reg8) {
		// pins configured as outputs read back the latch; undriven rows float high
		drive := k.PORT.Value&k.DDR.Value | ^k.DDR.Value&0xF0
		r.Value = k.Sample(drive)
	}
	k.PIN.OnSet = func(r *Reg8, v uint8) {}
	return k
}

// Port returns the port the driver scans.
func (k *Keypad) Port() avr.Port {
	return avr.Port{DDR: &k.DDR, PORT: &k.PORT, PIN: &k.PIN}
}

// Hold closes the contact at row, col from the given offset until to, both measured
// from now. A zero to holds it forever.
func (k *Keypad) Hold(row, col int, from, to time.Duration) {
	now := k.clk.Elapsed()
	c := contact{row: row, col: col, from: now + from}
	if to > 0 {
		c.to = now + to
	}
	k.contacts = append(k.contacts, c)
}

// Press closes row, col from now on.
func (k *Keypad) Press(row, col int) {
	k.Hold(row, col, 0, 0)
}

// Release opens every contact.
func (k *Keypad) Release() {
	k.contacts = nil
}

// Sample returns the port value seen with the given row drive pattern and charges the
// sample cost to the clock.
func (k *Keypad) Sample(drive uint8) uint8 {
	k.Samples++
	now := k.clk.Elapsed()
	k.clk.Spend(k.SampleCost)

	cols := uint8(0x0F)
	for _, c := range k.contacts {
		if now < c.from || (c.to > 0 && now >= c.to) {
			continue
		}
		if drive&(1<<(4+c.row)) == 0 {
			cols &^= 1 << c.col
		}
	}
	return drive&0xF0 | cols
}
