package tester

import "tinygo.org/x/avrdrivers/avr"

// EEPROM models the on-chip EEPROM controller.
//
// Setting EEMWE opens a window of four register accesses in which EEWE starts a write
// cycle. The cycle keeps EEWE set for WriteCycle reads of EECR; touching EEAR or EEDR
// or starting a read during that time fails the test.
type EEPROM struct {
	c Failer

	EECR, EEDR Reg8
	EEAR       Reg16

	Mem []byte
	// WriteCycle is the number of EECR reads a write takes to complete.
	WriteCycle int
	// Stalled keeps EEWE set forever once a write has started.
	Stalled bool
	// Writes counts completed write strobes.
	Writes int
	// Reads counts read strobes.
	Reads int

	window int
	busy   int
}

// NewEEPROM returns an erased EEPROM of size bytes.
func NewEEPROM(c Failer, size int) *EEPROM {
	e := &EEPROM{c: c, Mem: make([]byte, size), WriteCycle: 3}
	for i := range e.Mem {
		e.Mem[i] = 0xFF
	}
	e.EECR.OnGet = e.tick
	e.EECR.OnSet = e.control
	e.EEAR.OnSet = func(r *Reg16, v uint16) {
		e.c.Helper()
		if e.writing() {
			e.c.Fatalf("EEAR written during a write cycle")
		}
		r.Value = v
	}
	e.EEDR.OnSet = func(r *Reg8, v uint8) {
		e.c.Helper()
		if e.writing() {
			e.c.Fatalf("EEDR written during a write cycle")
		}
		r.Value = v
	}
	return e
}

// Regs returns the register block for the driver.
func (e *EEPROM) Regs() avr.EEPROM {
	return avr.EEPROM{EECR: &e.EECR, EEDR: &e.EEDR, EEAR: &e.EEAR}
}

func (e *EEPROM) writing() bool {
	return e.EECR.Value&(1<<avr.EEWE) != 0
}

func (e *EEPROM) tick(r *Reg8) {
	if e.window > 0 {
		e.window--
		if e.window == 0 {
			r.Value &^= 1 << avr.EEMWE
		}
	}
	if e.busy > 0 && !e.Stalled {
		e.busy--
		if e.busy == 0 {
			r.Value &^= 1 << avr.EEWE
		}
	}
}

func (e *EEPROM) control(r *Reg8, v uint8) {
	e.c.Helper()
	if e.window > 0 {
		// the write itself counts as an access
		e.window--
	}
	prev := r.Value
	r.Value = v &^ (1 << avr.EERE)

	if v&(1<<avr.EEMWE) != 0 && prev&(1<<avr.EEMWE) == 0 {
		e.window = 4
	}
	if v&(1<<avr.EEWE) != 0 && prev&(1<<avr.EEWE) == 0 {
		if prev&(1<<avr.EEMWE) == 0 || e.window == 0 {
			e.c.Fatalf("EEWE set without EEMWE armed")
			return
		}
		addr := e.address()
		if addr < 0 {
			return
		}
		e.Mem[addr] = e.EEDR.Value
		e.Writes++
		e.busy = e.WriteCycle
		e.window = 0
		r.Value &^= 1 << avr.EEMWE
		if e.busy == 0 && !e.Stalled {
			r.Value &^= 1 << avr.EEWE
		}
	}
	if v&(1<<avr.EERE) != 0 {
		if prev&(1<<avr.EEWE) != 0 {
			e.c.Fatalf("EERE set during a write cycle")
			return
		}
		addr := e.address()
		if addr < 0 {
			return
		}
		e.EEDR.Value = e.Mem[addr]
		e.Reads++
	}
}

func (e *EEPROM) address() int {
	addr := int(e.EEAR.Value)
	if addr >= len(e.Mem) {
		e.c.Fatalf("EEPROM address %#x beyond %d bytes", addr, len(e.Mem))
		return -1
	}
	return addr
}
